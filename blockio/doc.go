// SPDX-License-Identifier: EPL-2.0

// Package blockio provides blocking, per-port sample I/O on top of a
// callback-driven audio server.
//
// An audio server such as JACK calls its clients back once per period from a
// real-time thread. BlockingAudioIO registers such a client with a fixed set
// of input and output ports and hands samples between that callback and the
// caller through one lock-free ring per port:
//
//	bio, err := blockio.New(jack.Backend{}, "synth", 2, 2)
//	if err != nil {
//	    return err
//	}
//	defer bio.Close()
//
//	if err := bio.Start(); err != nil {
//	    return err
//	}
//	bio.ConnectToPhysical(0, 0)
//
//	for {
//	    if err := bio.Write(0, next()); err != nil {
//	        return err
//	    }
//	}
//
// # Blocking
//
// Write blocks while the port's output buffer is full and Read blocks while
// the input buffer is empty. Callers wait on a per-port notification that
// the callback signals after every period without ever blocking itself.
// WriteContext and ReadContext stop waiting when their context ends;
// TryWrite and TryRead never wait.
//
// # Periods
//
// Every period the callback moves up to one period of samples per port.
// Output ports that run dry are padded with silence and input samples that
// do not fit are dropped; Stats counts both.
//
// # Lifecycle
//
// A new instance is Inactive. Start makes it Active. Stop, Close and the
// server shutting down are terminal: blocked and later Read and Write calls
// fail with ErrBackendDisconnected.
package blockio
