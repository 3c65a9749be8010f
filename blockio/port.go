// SPDX-License-Identifier: EPL-2.0

package blockio

import (
	"github.com/ik5/audbio/backend"
	"github.com/ik5/audbio/ringbuf"
)

// Direction tells which way samples flow through a port, seen from the
// caller.
type Direction int

const (
	// Input ports deliver captured samples to Read.
	Input Direction = iota
	// Output ports take samples from Write.
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// AudioPort describes one registered port at the time it was queried.
type AudioPort struct {
	Index     int
	Direction Direction
	// Name is the full server name, "client:output0".
	Name string
	// Connections lists the full names of the ports wired to this one.
	Connections []string
}

// channel couples a backend port with its ring. The process callback is the
// ring's producer for inputs and its consumer for outputs.
type channel struct {
	port   backend.Port
	ring   *ringbuf.Ring[float32]
	notify chan struct{}
}

func newChannel(p backend.Port, capacity int) *channel {
	return &channel{
		port:   p,
		ring:   ringbuf.New[float32](capacity),
		notify: make(chan struct{}, 1),
	}
}

// wake never blocks.
func (c *channel) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
