// SPDX-License-Identifier: EPL-2.0

// Package pcm converts between integer PCM and float32 samples for the
// format packages.
package pcm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

var ErrUnsupportedBitDepth = errors.New("unsupported bit depth")

// Scale returns 2^(bitDepth-1), which maps signed samples of that depth onto
// [-1, 1).
func Scale(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
		return float32(uint64(1) << (bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
}

// ToFloat32 writes src/scale into dst and returns how many samples it wrote.
func ToFloat32[T int | int32](dst []float32, src []T, scale float32) int {
	n := min(len(dst), len(src))
	inv := 1 / scale
	for i, v := range src[:n] {
		dst[i] = float32(v) * inv
	}
	return n
}

// Float32ToInt16 clamps x to [-1, 1] and scales it to 16 bits.
func Float32ToInt16(x float32) int16 {
	if x > 1 {
		x = 1
	} else if x < -1 {
		x = -1
	}

	// 32767 keeps +1 from overflowing
	return int16(x * 32767.0)
}

// ReadSeeker returns r when it can seek, otherwise r's content in memory.
func ReadSeeker(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("buffering input: %w", err)
	}

	return bytes.NewReader(data), nil
}
