// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"fmt"
	"io"

	"github.com/go-audio/aiff"

	"github.com/ik5/audbio/audio"
	"github.com/ik5/audbio/formats/internal/pcm"
)

// Decoder reads uncompressed AIFF files of 8, 16, 24 or 32 bits.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := pcm.ReadSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	format := dec.Format()
	if format == nil {
		return nil, ErrUnsupportedAiffLayout
	}

	src, err := pcm.NewIntSource(dec, format, int(dec.BitDepth))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedAiffBits, err)
	}

	return src, nil
}
