// SPDX-License-Identifier: EPL-2.0

package audbio

import "math"

// ToneSource is an endless sine at a fixed frequency whose amplitude swells
// and fades once per second: sin(2π·f·n/sr) · |sin(π·n/sr)| · gain.
// Every channel carries the same signal.
type ToneSource struct {
	sampleRate int
	channels   int
	freq       float64
	gain       float64
	n          int
}

// Tone builds a ToneSource. gain is clamped to [0, 1].
func Tone(sampleRate, channels int, freq, gain float64) *ToneSource {
	return &ToneSource{
		sampleRate: sampleRate,
		channels:   max(channels, 1),
		freq:       freq,
		gain:       min(max(gain, 0), 1),
	}
}

func (t *ToneSource) SampleRate() int { return t.sampleRate }
func (t *ToneSource) Channels() int   { return t.channels }
func (t *ToneSource) BufSize() int    { return 1024 * t.channels }
func (t *ToneSource) Close() error    { return nil }

// Next returns the next mono sample.
func (t *ToneSource) Next() float32 {
	x := float64(t.n) / float64(t.sampleRate)
	v := math.Sin(2*math.Pi*t.freq*x) * math.Abs(math.Sin(math.Pi*x)) * t.gain

	t.n++
	// wrap where the envelope is zero
	if t.n == t.sampleRate {
		t.n = 0
	}

	return float32(v)
}

// ReadSamples never ends; it fills every whole frame of dst.
func (t *ToneSource) ReadSamples(dst []float32) (int, error) {
	frames := len(dst) / t.channels
	for f := range frames {
		v := t.Next()
		for c := range t.channels {
			dst[f*t.channels+c] = v
		}
	}

	return frames * t.channels, nil
}
