// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides synthetic sources for tests. Its types satisfy
// audio.Source without importing the audio package.
package audiotest

import (
	"io"
	"math"
)

// Waveform returns the value of channel ch at frame n.
type Waveform func(n, ch int) float32

// Source generates a fixed number of frames from a Waveform. A negative
// frame count makes it endless.
type Source struct {
	sampleRate int
	channels   int
	frames     int
	pos        int
	wave       Waveform

	// Err, when set, is returned by ReadSamples once Fail frames were read.
	Err  error
	Fail int

	closed bool
}

func NewSource(sampleRate, channels, frames int, wave Waveform) *Source {
	return &Source{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		wave:       wave,
	}
}

func NewSilentSource(sampleRate, channels, frames int) *Source {
	return NewSource(sampleRate, channels, frames, func(int, int) float32 { return 0 })
}

func NewConstantSource(sampleRate, channels, frames int, value float32) *Source {
	return NewSource(sampleRate, channels, frames, func(int, int) float32 { return value })
}

func NewSineSource(sampleRate, channels, frames int, freq float64) *Source {
	return NewSource(sampleRate, channels, frames, func(n, _ int) float32 {
		return float32(math.Sin(2 * math.Pi * freq * float64(n) / float64(sampleRate)))
	})
}

// NewRampSource yields n/scale + ch on frame n, channel ch, so tests can
// tell where every sample came from.
func NewRampSource(sampleRate, channels, frames int, scale float32) *Source {
	return NewSource(sampleRate, channels, frames, func(n, ch int) float32 {
		return float32(n)/scale + float32(ch)
	})
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BufSize() int    { return 1024 * s.channels }

func (s *Source) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *Source) Closed() bool { return s.closed }

// Pos is the number of frames read so far.
func (s *Source) Pos() int { return s.pos }

// Rewind starts the source over.
func (s *Source) Rewind() { s.pos = 0 }

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if s.Err != nil && s.pos >= s.Fail {
		return 0, s.Err
	}
	if s.frames >= 0 && s.pos >= s.frames {
		return 0, io.EOF
	}

	frames := len(dst) / s.channels
	if s.frames >= 0 {
		frames = min(frames, s.frames-s.pos)
	}
	if s.Err != nil {
		frames = min(frames, s.Fail-s.pos)
	}

	for f := range frames {
		for ch := range s.channels {
			dst[f*s.channels+ch] = s.wave(s.pos+f, ch)
		}
	}
	s.pos += frames

	n := frames * s.channels
	if s.frames >= 0 && s.pos >= s.frames {
		return n, io.EOF
	}

	return n, nil
}
