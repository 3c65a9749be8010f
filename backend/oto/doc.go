// SPDX-License-Identifier: EPL-2.0

// Package oto implements a playback-only backend.Backend on the default
// sound device through github.com/ebitengine/oto/v3.
//
// The device pulls PCM from the client. Every pull runs the client's process
// callback for whole periods and sends the output ports connected to
// "system:playback_N" to device channel N as float32 little-endian frames.
// There are no capture ports.
//
// Oto allows a single context per process. The first client to activate
// fixes the device's sample rate and channel count; activating a client that
// asks for another format fails with backend.ErrUnsupported.
package oto
