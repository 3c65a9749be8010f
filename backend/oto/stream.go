// SPDX-License-Identifier: EPL-2.0

package oto

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const bytesPerSample = 4

var errStreamClosed = errors.New("playback stream closed")

// stream is the io.Reader the oto player pulls from. Each refill runs one
// period of the client.
type stream struct {
	client  *Client
	scratch []byte
	pending []byte
}

var _ io.Reader = (*stream)(nil)

func (s *stream) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) == 0 {
			if err := s.refill(); err != nil {
				if n > 0 {
					return n, nil
				}
				return 0, err
			}
		}

		m := copy(p[n:], s.pending)
		s.pending = s.pending[m:]
		n += m
	}

	return n, nil
}

func (s *stream) refill() error {
	c := s.client
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errStreamClosed
	}
	if !c.cycleLocked() {
		return io.EOF
	}

	channels := len(c.playback)
	size := int(c.bufferSize) * channels * bytesPerSample
	if len(s.scratch) != size {
		s.scratch = make([]byte, size)
	}
	buf := s.scratch

	for frame := range int(c.bufferSize) {
		for ch, p := range c.playback {
			off := (frame*channels + ch) * bytesPerSample
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.buf[frame]))
		}
	}
	s.pending = buf

	return nil
}
