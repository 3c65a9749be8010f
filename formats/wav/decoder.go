// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/ik5/audbio/audio"
	"github.com/ik5/audbio/formats/internal/pcm"
)

const wavFormatPCM = 1

// Decoder reads integer PCM WAV files of 16, 24 or 32 bits.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := pcm.ReadSeeker(r)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", ErrOnlyPCMSupported, dec.WavAudioFormat)
	}
	// 8-bit WAV is unsigned and would need an offset
	if dec.BitDepth == 8 {
		return nil, ErrUnsupportedWavBits
	}

	src, err := pcm.NewIntSource(dec, dec.Format(), int(dec.BitDepth))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedWavBits, err)
	}

	return src, nil
}
