// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/audbio/audio"
	"github.com/ik5/audbio/formats/internal/pcm"
)

const encoderBitDepth = 16

// Encoder writes interleaved float32 samples as a 16-bit PCM WAV file. The
// header is completed by Close, which needs to seek back in the output.
type Encoder struct {
	enc      *wav.Encoder
	channels int
	buf      *goaudio.IntBuffer
}

func NewEncoder(w io.WriteSeeker, sampleRate, channels int) (*Encoder, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}

	return &Encoder{
		enc:      wav.NewEncoder(w, sampleRate, encoderBitDepth, channels, wavFormatPCM),
		channels: channels,
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
			SourceBitDepth: encoderBitDepth,
		},
	}, nil
}

// WriteSamples appends whole frames; len(samples) must be a multiple of the
// channel count.
func (e *Encoder) WriteSamples(samples []float32) error {
	if len(samples)%e.channels != 0 {
		return fmt.Errorf("%w: %d samples, %d channels", ErrPartialFrame, len(samples), e.channels)
	}
	if len(samples) == 0 {
		return nil
	}

	if cap(e.buf.Data) < len(samples) {
		e.buf.Data = make([]int, len(samples))
	}
	e.buf.Data = e.buf.Data[:len(samples)]
	for i, v := range samples {
		e.buf.Data[i] = int(pcm.Float32ToInt16(v))
	}

	if err := e.enc.Write(e.buf); err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// Close finalizes the header. It does not close the underlying writer.
func (e *Encoder) Close() error {
	if err := e.enc.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// Encode copies src to w until io.EOF.
func Encode(w io.WriteSeeker, src audio.Source) error {
	enc, err := NewEncoder(w, src.SampleRate(), src.Channels())
	if err != nil {
		return err
	}

	size := src.BufSize()
	size -= size % src.Channels()
	if size <= 0 {
		size = 4096 * src.Channels()
	}
	buf := make([]float32, size)

	for {
		n, rerr := src.ReadSamples(buf)
		if n > 0 {
			if err := enc.WriteSamples(buf[:n]); err != nil {
				return errors.Join(err, enc.Close())
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return errors.Join(fmt.Errorf("%w", rerr), enc.Close())
		}
	}

	return enc.Close()
}
