// SPDX-License-Identifier: EPL-2.0

// Package jack implements backend.Backend on top of a running JACK audio
// server through github.com/xthexder/go-jack.
//
// Building this package needs cgo and the JACK development headers. Every
// port is registered with JACK's default 32 bit float mono audio type.
package jack
