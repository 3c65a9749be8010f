// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 through github.com/hajimehoshi/go-mp3.
//
// The decoder always produces interleaved stereo; mono files are duplicated
// onto both channels. Use audio.ChannelMapper to fold them back down.
package mp3
