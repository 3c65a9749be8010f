// SPDX-License-Identifier: EPL-2.0

// Package loopback implements an in-process audio server.
//
// The server exposes physical capture ports "system:capture_N" and physical
// playback ports "system:playback_N" (N starts at 1). Whatever a cycle emits
// on playback_N arrives on capture_N in the following cycle, like a cable
// from the sound card's output back into its input. Extra signal can be
// pushed into a capture channel with Feed.
//
// Cycles are driven either by hand, which makes tests deterministic:
//
//	srv := loopback.NewServer(loopback.WithBufferSize(64), loopback.WithRecording())
//	client, _ := srv.Open("test", backend.OpenOptions{})
//	...
//	srv.Cycle()
//	fmt.Println(srv.Played(0))
//
// or on a wall clock with Run:
//
//	go srv.Run(ctx)
//
// Shutdown simulates the server disappearing: every client's shutdown
// callback fires and the clients stop working.
package loopback
