// SPDX-License-Identifier: EPL-2.0

// Package audbio connects audio.Source streams to the ports of a
// blockio.BlockingAudioIO.
//
// The façade itself lives in blockio; this package holds the loops that
// applications usually write on top of it:
//
//   - Play decodes, resamples and channel-maps a source onto the output
//     ports.
//   - Record and RecordWAV capture the input ports.
//   - Passthrough copies every input port to the output port of the same
//     index.
//   - Tone is the endless test signal used by the tone command.
//
// A minimal program playing a file on the default JACK server:
//
//	bio, err := blockio.New(jack.Backend{}, "player", 0, 2)
//	if err != nil {
//	    return err
//	}
//	defer bio.Close()
//
//	bio.Start()
//	bio.ConnectToPhysical(0, 0)
//	bio.ConnectToPhysical(1, 1)
//
//	src, _ := audbio.DefaultRegistry().Open("song.flac")
//	defer src.Close()
//	return audbio.Play(ctx, bio, src)
package audbio
