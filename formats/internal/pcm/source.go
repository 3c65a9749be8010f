// SPDX-License-Identifier: EPL-2.0

package pcm

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

// IntReader is the PCMBuffer half of the go-audio wav and aiff decoders.
type IntReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// IntSource turns an IntReader into float32 samples.
type IntSource struct {
	dec    IntReader
	format *goaudio.Format
	scale  float32
	buf    *goaudio.IntBuffer
}

func NewIntSource(dec IntReader, format *goaudio.Format, bitDepth int) (*IntSource, error) {
	if format == nil || format.NumChannels <= 0 || format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing or empty format", io.ErrUnexpectedEOF)
	}

	scale, err := Scale(bitDepth)
	if err != nil {
		return nil, err
	}

	return &IntSource{dec: dec, format: format, scale: scale}, nil
}

func (s *IntSource) SampleRate() int { return s.format.SampleRate }
func (s *IntSource) Channels() int   { return s.format.NumChannels }
func (s *IntSource) Close() error    { return nil }

func (s *IntSource) BufSize() int {
	if s.buf != nil {
		return cap(s.buf.Data)
	}
	return 4096
}

func (s *IntSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.buf == nil || cap(s.buf.Data) < len(dst) {
		s.buf = &goaudio.IntBuffer{Data: make([]int, len(dst)), Format: s.format}
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("%w", err)
		}
		return 0, io.EOF
	}

	ToFloat32(dst, s.buf.Data[:n], s.scale)

	// a short read without error marks the end of the data chunk
	if n < len(dst) && err == nil {
		return n, io.EOF
	}

	return n, err
}
