// SPDX-License-Identifier: EPL-2.0

// Package audio holds the streaming primitives that feed and drain the
// blocking ports: the Source interface, the decoder Registry, a
// Resampler and a ChannelMapper.
//
// # Source
//
// A Source yields interleaved float32 samples in [-1, 1]. ReadSamples
// returns the number of values written, not frames, and io.EOF once the
// stream is finished; the final call may return both data and io.EOF:
//
//	for {
//	    n, err := src.ReadSamples(buf)
//	    consume(buf[:n])
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	}
//
// # Pipelines
//
// Sources stack. To feed a two-port 48 kHz client from a mono 22.05 kHz file:
//
//	rs, _ := audio.NewResampler(src, 48000)
//	st, _ := audio.NewChannelMapper(rs, 2)
//
// # Registry
//
// Decoders are registered under the file extension they handle, and Open
// picks one by the extension of a path:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	reg.Register("flac", flac.Decoder{})
//	src, err := reg.Open("take.flac")
package audio
