// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"

	"github.com/ik5/audbio/audio"
)

// frameReader is the part of flac.Stream the source uses.
type frameReader interface {
	ParseNext() (*frame.Frame, error)
	Close() error
}

type source struct {
	stream     frameReader
	sampleRate int
	channels   int
	inv        float32

	cur *frame.Frame
	pos int // next sample index within cur
	eof bool
}

func newSource(stream frameReader, sampleRate, channels, bitsPerSample int) (*source, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("%w: %d", audio.ErrInvalidChannels, channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", audio.ErrInvalidRate, sampleRate)
	}
	if bitsPerSample < 4 || bitsPerSample > 32 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitsPerSample)
	}

	return &source{
		stream:     stream,
		sampleRate: sampleRate,
		channels:   channels,
		inv:        1 / float32(uint64(1)<<(bitsPerSample-1)),
	}, nil
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return 4096 * s.channels }

func (s *source) Close() error {
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// ReadSamples interleaves the subframes of as many FLAC frames as fit in
// dst. A frame that does not fit is continued on the next call.
func (s *source) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / s.channels
	written := 0

	for written < frames {
		if s.cur == nil || s.pos >= s.blockLen() {
			if s.eof {
				break
			}
			f, err := s.stream.ParseNext()
			if err == io.EOF {
				s.eof = true
				s.cur = nil
				break
			}
			if err != nil {
				return written * s.channels, fmt.Errorf("%w", err)
			}
			if len(f.Subframes) != s.channels {
				return written * s.channels, fmt.Errorf("%w: frame has %d channels, stream %d",
					ErrChannelMismatch, len(f.Subframes), s.channels)
			}
			s.cur, s.pos = f, 0
			continue
		}

		n := min(frames-written, s.blockLen()-s.pos)
		for i := range n {
			out := dst[(written+i)*s.channels:]
			for ch, sub := range s.cur.Subframes {
				out[ch] = float32(sub.Samples[s.pos+i]) * s.inv
			}
		}
		s.pos += n
		written += n
	}

	if s.eof && written == 0 {
		return 0, io.EOF
	}
	if s.eof && (s.cur == nil || s.pos >= s.blockLen()) {
		return written * s.channels, io.EOF
	}

	return written * s.channels, nil
}

// blockLen is the shortest subframe, which guards against frames whose
// header and subframes disagree.
func (s *source) blockLen() int {
	n := len(s.cur.Subframes[0].Samples)
	for _, sub := range s.cur.Subframes[1:] {
		n = min(n, len(sub.Samples))
	}
	return n
}

// Decoder reads FLAC streams with github.com/mewkiz/flac.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFlacFile, err)
	}

	info := stream.Info
	src, err := newSource(stream, int(info.SampleRate), int(info.NChannels), int(info.BitsPerSample))
	if err != nil {
		stream.Close()
		return nil, err
	}

	return src, nil
}
