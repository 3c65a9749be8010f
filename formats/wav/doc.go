// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes WAV files through github.com/go-audio/wav.
//
// Decoder accepts integer PCM at 16, 24 or 32 bits, any channel count and
// any sample rate, and yields float32 samples in [-1, 1]:
//
//	f, _ := os.Open("take.wav")
//	src, err := wav.Decoder{}.Decode(f)
//
// Encoder writes 16-bit PCM. The WAV header carries the data size, so the
// output must be an io.WriteSeeker and Close must be called:
//
//	out, _ := os.Create("capture.wav")
//	enc, _ := wav.NewEncoder(out, 48000, 2)
//	enc.WriteSamples(frames)
//	enc.Close()
//
// Encode copies a whole audio.Source into a file.
package wav
