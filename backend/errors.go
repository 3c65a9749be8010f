// SPDX-License-Identifier: EPL-2.0

package backend

import "errors"

var (
	// ErrUnavailable indicates the audio server cannot be reached
	ErrUnavailable = errors.New("audio server unavailable")

	// ErrClosed indicates the client was closed or the server went away
	ErrClosed = errors.New("client closed")

	// ErrNotActive indicates an operation that needs an active client
	ErrNotActive = errors.New("client not active")

	// ErrNoSuchPort indicates a port name the server does not know
	ErrNoSuchPort = errors.New("no such port")

	// ErrPortExists indicates a port name already registered by the client
	ErrPortExists = errors.New("port already exists")

	// ErrAlreadyConnected indicates the two ports are already connected
	ErrAlreadyConnected = errors.New("ports already connected")

	// ErrIncompatiblePorts indicates a connection that is not output to input
	ErrIncompatiblePorts = errors.New("incompatible ports")

	// ErrUnsupported indicates the backend cannot perform the operation
	ErrUnsupported = errors.New("operation not supported by backend")
)
