// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC streams with github.com/mewkiz/flac.
//
// Any bit depth from 4 to 32 is scaled to float32 in [-1, 1]. Closing the
// source closes the FLAC stream, and with it the reader when that is an
// io.Closer.
package flac
