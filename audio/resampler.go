// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler streams src at another sample rate. It works on interleaved
// samples and preserves the channel count. When the rates already match it
// passes samples through untouched.
type Resampler struct {
	src      Source
	dstRate  int
	channels int

	rs      resampling.Resampler
	in      []float32
	in64    []float64
	pending []float64
	eof     bool
}

// NewResampler converts src to dstRate Hz.
func NewResampler(src Source, dstRate int) (*Resampler, error) {
	if dstRate <= 0 || src.SampleRate() <= 0 {
		return nil, fmt.Errorf("%w: %d Hz -> %d Hz", ErrInvalidRate, src.SampleRate(), dstRate)
	}
	if src.Channels() <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, src.Channels())
	}

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		channels: src.Channels(),
	}
	if src.SampleRate() == dstRate {
		return r, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate()),
		OutputRate: float64(dstRate),
		Channels:   r.channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	r.rs = rs

	size := src.BufSize()
	if size < r.channels {
		size = 4096
	}
	size -= size % r.channels
	r.in = make([]float32, size)
	r.in64 = make([]float64, size)

	return r, nil
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error { return r.src.Close() }

// ReadSamples produces samples at the target rate. len(dst) must be a
// multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if r.rs == nil {
		return r.src.ReadSamples(dst)
	}

	for len(r.pending) == 0 && !r.eof {
		if err := r.fill(); err != nil {
			return 0, err
		}
	}

	n := min(len(dst), len(r.pending))
	for i, v := range r.pending[:n] {
		dst[i] = float32(v)
	}
	r.pending = r.pending[n:]

	if len(r.pending) == 0 && r.eof {
		return n, io.EOF
	}

	return n, nil
}

// fill pushes one source read through the converter.
func (r *Resampler) fill() error {
	n, err := r.src.ReadSamples(r.in)
	if err == io.EOF {
		r.eof = true
	} else if err != nil {
		return fmt.Errorf("%w", err)
	}

	n -= n % r.channels
	if n == 0 {
		return nil
	}

	for i, v := range r.in[:n] {
		r.in64[i] = float64(v)
	}
	out, perr := r.rs.Process(r.in64[:n])
	if perr != nil {
		return fmt.Errorf("resample error: %w", perr)
	}
	r.pending = out

	return nil
}
