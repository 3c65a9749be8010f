// SPDX-License-Identifier: EPL-2.0

package blockio

import "log/slog"

type options struct {
	inputBufferSize  int
	outputBufferSize int
	startServer      bool
	logger           *slog.Logger
}

// Option configures New.
type Option func(*options)

// WithInputBufferSize sets how many samples each input buffer holds. The
// value is clamped to [2*period, sampleRate]; zero means 2*period.
func WithInputBufferSize(samples int) Option {
	return func(o *options) { o.inputBufferSize = samples }
}

// WithOutputBufferSize sets how many samples each output buffer holds. The
// value is clamped to [2*period, sampleRate]; zero means 2*period.
func WithOutputBufferSize(samples int) Option {
	return func(o *options) { o.outputBufferSize = samples }
}

// WithStartServer lets the backend launch an audio server when none runs.
func WithStartServer(start bool) Option {
	return func(o *options) { o.startServer = start }
}

// WithLogger sets the logger for lifecycle events. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// bufferSize clamps a requested buffer size to [2*period, sampleRate].
func bufferSize(requested int, period, sampleRate uint32) int {
	lo, hi := 2*int(period), int(sampleRate)
	if hi < lo {
		hi = lo
	}

	switch {
	case requested < lo:
		return lo
	case requested > hi:
		return hi
	default:
		return requested
	}
}
