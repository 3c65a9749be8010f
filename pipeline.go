// SPDX-License-Identifier: EPL-2.0

package audbio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audbio/audio"
	"github.com/ik5/audbio/formats/wav"
)

// PortWriter is the output half of a blockio.BlockingAudioIO.
type PortWriter interface {
	SampleRate() int
	OutPorts() int
	WriteContext(ctx context.Context, portIndex int, sample float32) error
}

// PortReader is the input half of a blockio.BlockingAudioIO.
type PortReader interface {
	SampleRate() int
	InPorts() int
	ReadContext(ctx context.Context, portIndex int) (float32, error)
}

// Convert resamples src to rate and maps its channels onto channels. The
// result closes src when closed.
func Convert(src audio.Source, rate, channels int) (audio.Source, error) {
	rs, err := audio.NewResampler(src, rate)
	if err != nil {
		return nil, err
	}

	m, err := audio.NewChannelMapper(rs, channels)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Play writes src to the output ports until it ends, converting it to the
// port rate and count first. Channel c of each frame goes to port c.
func Play(ctx context.Context, w PortWriter, src audio.Source) error {
	ports := w.OutPorts()
	if ports == 0 {
		return fmt.Errorf("%w: no output ports", audio.ErrInvalidChannels)
	}

	conv, err := Convert(src, w.SampleRate(), ports)
	if err != nil {
		return err
	}

	buf := make([]float32, 1024*ports)
	for {
		n, rerr := conv.ReadSamples(buf)
		for i, v := range buf[:n] {
			if err := w.WriteContext(ctx, i%ports, v); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return fmt.Errorf("reading source: %w", rerr)
		}
	}
}

// Record captures frames frames from every input port and returns them
// interleaved. On failure it returns the whole frames captured so far along
// with the error.
func Record(ctx context.Context, r PortReader, frames int) ([]float32, error) {
	ports := r.InPorts()
	out := make([]float32, 0, max(frames, 0)*ports)

	err := record(ctx, r, frames, func(frame []float32) error {
		out = append(out, frame...)
		return nil
	})

	return out, err
}

// RecordWAV captures frames frames, or everything until ctx ends when frames
// is not positive, into a 16-bit WAV file on w. The file is finalized in
// either case; a context ending is reported as its error.
func RecordWAV(ctx context.Context, r PortReader, w io.WriteSeeker, frames int) error {
	enc, err := wav.NewEncoder(w, r.SampleRate(), r.InPorts())
	if err != nil {
		return err
	}

	const chunkFrames = 512
	chunk := make([]float32, 0, chunkFrames*r.InPorts())

	err = record(ctx, r, frames, func(frame []float32) error {
		chunk = append(chunk, frame...)
		if len(chunk) < cap(chunk) {
			return nil
		}
		werr := enc.WriteSamples(chunk)
		chunk = chunk[:0]
		return werr
	})

	if werr := enc.WriteSamples(chunk); werr != nil {
		err = errors.Join(err, werr)
	}

	return errors.Join(err, enc.Close())
}

// record reads one frame at a time. frames <= 0 means until ctx ends.
func record(ctx context.Context, r PortReader, frames int, emit func([]float32) error) error {
	ports := r.InPorts()
	if ports == 0 {
		return fmt.Errorf("%w: no input ports", audio.ErrInvalidChannels)
	}

	frame := make([]float32, ports)
	for n := 0; frames <= 0 || n < frames; n++ {
		for p := range frame {
			v, err := r.ReadContext(ctx, p)
			if err != nil {
				return err
			}
			frame[p] = v
		}
		if err := emit(frame); err != nil {
			return err
		}
	}

	return nil
}

// PortIO is a façade with both directions.
type PortIO interface {
	PortReader
	PortWriter
}

// Passthrough forwards input port i to output port i, one sample per port
// in turn, until ctx ends or the façade fails. Ports without a partner are
// left alone.
func Passthrough(ctx context.Context, pio PortIO) error {
	pairs := min(pio.InPorts(), pio.OutPorts())
	if pairs == 0 {
		return fmt.Errorf("%w: passthrough needs an input and an output port", audio.ErrInvalidChannels)
	}

	for {
		for i := range pairs {
			v, err := pio.ReadContext(ctx, i)
			if err != nil {
				return err
			}
			if err := pio.WriteContext(ctx, i, v); err != nil {
				return err
			}
		}
	}
}
