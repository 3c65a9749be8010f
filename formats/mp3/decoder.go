// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/ik5/audbio/audio"
)

// go-mp3 always emits 16-bit little endian stereo.
const (
	channels       = 2
	bytesPerSample = 2
)

// mp3Reader is the part of gomp3.Decoder the source uses.
type mp3Reader interface {
	io.Reader
	SampleRate() int
}

type source struct {
	dec        mp3Reader
	sampleRate int
	buf        []byte
	carry      int // bytes of an incomplete sample left at buf[0:carry]
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / bytesPerSample }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	need := len(dst) * bytesPerSample
	if cap(s.buf) < need {
		nb := make([]byte, need)
		copy(nb, s.buf[:s.carry])
		s.buf = nb
	}
	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf[s.carry:])
	n += s.carry
	if n < bytesPerSample {
		s.carry = n
		if err == nil {
			return 0, nil
		}
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("%w", err)
	}

	samples := n / bytesPerSample
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(s.buf[i*bytesPerSample:]))
		dst[i] = float32(v) / 32768
	}

	s.carry = copy(s.buf, s.buf[samples*bytesPerSample:n])

	if err != nil && err != io.EOF {
		err = fmt.Errorf("%w", err)
	}

	return samples, err
}

// Decoder reads MPEG-1/2 layer III streams with github.com/hajimehoshi/go-mp3.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		buf:        make([]byte, 8192),
	}, nil
}
