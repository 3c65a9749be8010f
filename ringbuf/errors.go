// SPDX-License-Identifier: EPL-2.0

package ringbuf

import "errors"

var (
	// ErrInvalidCapacity indicates a ring created with a capacity below one
	ErrInvalidCapacity = errors.New("ring capacity must be positive")
)
