// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMapper spreads or folds the channels of src onto a different
// channel count:
//   - same count passes through
//   - mono is copied to every output channel
//   - a mono output averages every source channel
//   - otherwise output channel c carries source channel c, wrapping around
//     when there are more outputs, or averages the source channels c, c+M,
//     c+2M... when there are fewer
type ChannelMapper struct {
	src      Source
	channels int
	tmp      []float32
}

func NewChannelMapper(src Source, channels int) (*ChannelMapper, error) {
	if channels <= 0 || src.Channels() <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidChannels, src.Channels(), channels)
	}

	return &ChannelMapper{
		src:      src,
		channels: channels,
		tmp:      make([]float32, 4096),
	}, nil
}

func (m *ChannelMapper) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMapper) Channels() int   { return m.channels }
func (m *ChannelMapper) BufSize() int    { return m.src.BufSize() }
func (m *ChannelMapper) Close() error    { return m.src.Close() }

// ReadSamples reads whole frames; len(dst) must be a multiple of Channels.
func (m *ChannelMapper) ReadSamples(dst []float32) (int, error) {
	if len(dst)%m.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	in := m.src.Channels()
	if in == m.channels {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / m.channels
	need := frames * in
	if cap(m.tmp) < need {
		m.tmp = make([]float32, max(need, 8192))
	}
	tmp := m.tmp[:need]

	n, err := m.src.ReadSamples(tmp)
	if n == 0 {
		return 0, err
	}
	frames = n / in

	switch {
	case in == 1:
		for f := range frames {
			v := tmp[f]
			out := dst[f*m.channels : (f+1)*m.channels]
			for c := range out {
				out[c] = v
			}
		}
	case m.channels == 1 && in == 2:
		for f := range frames {
			idx := f << 1
			dst[f] = (tmp[idx] + tmp[idx+1]) * 0.5
		}
	case m.channels > in:
		for f := range frames {
			frame := tmp[f*in : (f+1)*in]
			for c := range m.channels {
				dst[f*m.channels+c] = frame[c%in]
			}
		}
	default:
		for f := range frames {
			frame := tmp[f*in : (f+1)*in]
			for c := range m.channels {
				var sum float32
				var cnt int
				for j := c; j < in; j += m.channels {
					sum += frame[j]
					cnt++
				}
				dst[f*m.channels+c] = sum / float32(cnt)
			}
		}
	}

	return frames * m.channels, err
}
