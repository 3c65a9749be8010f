// SPDX-License-Identifier: EPL-2.0

package loopback

import (
	"fmt"
	"slices"

	"github.com/ik5/audbio/backend"
)

// Client is a registration with a loopback Server. It implements
// backend.Client.
type Client struct {
	srv  *Server
	name string

	// guarded by srv.mu
	ports    []*port
	process  backend.ProcessFunc
	shutdown backend.ShutdownFunc
	active   bool
	closed   bool
	failure  error
}

var _ backend.Client = (*Client)(nil)

func (c *Client) Name() string       { return c.name }
func (c *Client) SampleRate() uint32 { return c.srv.sampleRate }
func (c *Client) BufferSize() uint32 { return c.srv.bufferSize }

// CPULoad is always zero; the server does no real work.
func (c *Client) CPULoad() float64 { return 0 }

// IsRealtime is false: cycles run on an ordinary goroutine.
func (c *Client) IsRealtime() bool { return false }

// FrameTime counts the frames of every completed cycle. It wraps like a
// JACK frame clock and is safe to call from a process callback.
func (c *Client) FrameTime() uint32 { return c.srv.frames.Load() }

// Err returns the error that made the server evict this client, if any.
func (c *Client) Err() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	return c.failure
}

func (c *Client) RegisterPort(name string, flags backend.PortFlags) (backend.Port, error) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if c.closed {
		return nil, backend.ErrClosed
	}
	if flags.Has(backend.PortIsPhysical) || flags.Has(backend.PortIsInput) == flags.Has(backend.PortIsOutput) {
		return nil, fmt.Errorf("%w: cannot register %q as %s", backend.ErrIncompatiblePorts, name, flags)
	}
	for _, p := range c.ports {
		if p.short == name {
			return nil, fmt.Errorf("%w: %s", backend.ErrPortExists, p.name)
		}
	}

	p := c.srv.newPort(c, name, flags)
	c.ports = append(c.ports, p)

	return p, nil
}

func (c *Client) UnregisterPort(bp backend.Port) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}

	p, ok := bp.(*port)
	if !ok || p.owner != c {
		return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, bp.Name())
	}

	i := slices.Index(c.ports, p)
	if i < 0 {
		return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, p.name)
	}
	c.srv.dropEdgesLocked(p)
	c.ports = slices.Delete(c.ports, i, i+1)

	return nil
}

func (c *Client) SetProcessCallback(fn backend.ProcessFunc) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}
	if c.active {
		return fmt.Errorf("%w: process callback of an active client", backend.ErrUnsupported)
	}
	c.process = fn

	return nil
}

func (c *Client) OnShutdown(fn backend.ShutdownFunc) {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	c.shutdown = fn
}

func (c *Client) Activate() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}
	c.active = true

	return nil
}

// Deactivate waits for a running cycle, since cycles hold the server lock.
func (c *Client) Deactivate() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}
	c.active = false

	return nil
}

// Close unregisters every port and removes the client from the server.
// Closing a client whose server is down succeeds.
func (c *Client) Close() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	for _, p := range c.ports {
		c.srv.dropEdgesLocked(p)
	}
	c.ports = nil
	c.active = false
	c.closed = true

	if i := slices.Index(c.srv.clients, c); i >= 0 {
		c.srv.clients = slices.Delete(c.srv.clients, i, i+1)
	}

	return nil
}

func (c *Client) Connect(src, dst string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}

	return c.srv.connectLocked(src, dst)
}

func (c *Client) Disconnect(src, dst string) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}

	return c.srv.disconnectLocked(src, dst)
}

func (c *Client) DisconnectAll(bp backend.Port) error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}

	p, ok := bp.(*port)
	if !ok || p.owner != c {
		return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, bp.Name())
	}
	c.srv.dropEdgesLocked(p)

	return nil
}

func (c *Client) Ports(flags backend.PortFlags) []string {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()

	return c.srv.portsLocked(flags)
}
