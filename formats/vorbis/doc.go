// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis with github.com/jfreymuth/oggvorbis.
// The registry key is "ogg".
package vorbis
