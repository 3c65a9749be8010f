// SPDX-License-Identifier: EPL-2.0

package blockio

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable indicates the audio server could not be reached
	ErrBackendUnavailable = errors.New("audio backend unavailable")

	// ErrAlreadyStarted indicates Start was called on an active instance
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted indicates an operation that needs Start first
	ErrNotStarted = errors.New("not started")

	// ErrInvalidPortIndex indicates a port or physical channel index out of range
	ErrInvalidPortIndex = errors.New("invalid port index")

	// ErrConnectionFailed indicates the backend rejected a connection request
	ErrConnectionFailed = errors.New("connection failed")

	// ErrBackendDisconnected indicates the session ended; it is terminal
	ErrBackendDisconnected = errors.New("audio backend disconnected")

	// ErrWouldBlock indicates a TryRead on an empty or TryWrite on a full buffer
	ErrWouldBlock = errors.New("operation would block")

	// ErrClosed indicates the instance was closed
	ErrClosed = errors.New("closed")
)

// errClosedSession matches both ErrBackendDisconnected and ErrClosed.
var errClosedSession = fmt.Errorf("%w: %w", ErrBackendDisconnected, ErrClosed)
