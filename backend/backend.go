// SPDX-License-Identifier: EPL-2.0

package backend

import "strings"

// PortFlags describe a port the way the audio server sees it. Input means
// data flows into the port: a client's capture side, or a physical playback
// channel.
type PortFlags uint32

const (
	PortIsInput PortFlags = 1 << iota
	PortIsOutput
	PortIsPhysical
)

// Has reports whether every bit of f is set.
func (p PortFlags) Has(f PortFlags) bool { return p&f == f }

func (p PortFlags) String() string {
	var parts []string
	if p.Has(PortIsInput) {
		parts = append(parts, "input")
	}
	if p.Has(PortIsOutput) {
		parts = append(parts, "output")
	}
	if p.Has(PortIsPhysical) {
		parts = append(parts, "physical")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ProcessFunc is invoked by the server once per period on its real-time
// thread with the period length in frames. It must not block, allocate
// heavily or take locks shared with non real-time code.
type ProcessFunc func(nframes uint32) error

// ShutdownFunc is invoked when the server goes away underneath an open
// client. It may run on a server thread.
type ShutdownFunc func(reason string)

// OpenOptions control how a client is registered.
type OpenOptions struct {
	// StartServer allows the backend to launch a server when none is
	// running.
	StartServer bool
}

// Backend opens clients on one kind of audio server.
type Backend interface {
	Open(name string, opts OpenOptions) (Client, error)
}

// Port is a registered audio port.
type Port interface {
	// Name is the full name, "client:port".
	Name() string
	ShortName() string
	Flags() PortFlags
	// Buffer returns the port's sample buffer for the current period. It is
	// only valid inside a ProcessFunc.
	Buffer(nframes uint32) []float32
	// Connections lists the full names of the ports connected to this one.
	Connections() []string
}

// Client is one registration with an audio server.
type Client interface {
	Name() string
	SampleRate() uint32
	// BufferSize is the period length in frames.
	BufferSize() uint32
	// CPULoad is the server's DSP load in percent.
	CPULoad() float64
	IsRealtime() bool
	// FrameTime is the server's running frame counter. It wraps.
	FrameTime() uint32

	RegisterPort(name string, flags PortFlags) (Port, error)
	UnregisterPort(p Port) error

	SetProcessCallback(fn ProcessFunc) error
	OnShutdown(fn ShutdownFunc)

	Activate() error
	// Deactivate returns after any running process cycle has finished.
	Deactivate() error
	Close() error

	// Connect wires source port src to destination port dst, both given by
	// full name.
	Connect(src, dst string) error
	Disconnect(src, dst string) error
	DisconnectAll(p Port) error

	// Ports lists the full names of every port with all of flags set, in
	// server order.
	Ports(flags PortFlags) []string
}
