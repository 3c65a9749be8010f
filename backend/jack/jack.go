// SPDX-License-Identifier: EPL-2.0

package jack

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/xthexder/go-jack"

	"github.com/ik5/audbio/backend"
)

// Backend opens clients on the local JACK server.
type Backend struct{}

var _ backend.Backend = Backend{}

// Open registers a JACK client. Unless opts.StartServer is set, no server is
// launched when none is running.
func (Backend) Open(name string, opts backend.OpenOptions) (backend.Client, error) {
	options := int(jack.NoStartServer)
	if opts.StartServer {
		options = int(jack.NullOption)
	}

	jc, status := jack.ClientOpen(name, options)
	if jc == nil {
		return nil, fmt.Errorf("%w: jack_client_open status 0x%x", backend.ErrUnavailable, status)
	}

	return &Client{jc: jc}, nil
}

// Client wraps a JACK client.
type Client struct {
	jc     *jack.Client
	closed bool
}

var _ backend.Client = (*Client)(nil)

func (c *Client) Name() string       { return c.jc.GetName() }
func (c *Client) SampleRate() uint32 { return c.jc.GetSampleRate() }
func (c *Client) BufferSize() uint32 { return c.jc.GetBufferSize() }
func (c *Client) CPULoad() float64   { return float64(c.jc.CPULoad()) }
func (c *Client) IsRealtime() bool   { return c.jc.IsRealtime() }

// FrameTime is jack_frame_time: an estimate of the server's current frame
// counter, usable from any thread.
func (c *Client) FrameTime() uint32 { return uint32(c.jc.GetFrameTime()) }

func (c *Client) RegisterPort(name string, flags backend.PortFlags) (backend.Port, error) {
	if c.closed {
		return nil, backend.ErrClosed
	}

	jp := c.jc.PortRegister(name, jack.DEFAULT_AUDIO_TYPE, toJackFlags(flags), 0)
	if jp == nil {
		return nil, fmt.Errorf("%w: jack_port_register %q failed", backend.ErrPortExists, name)
	}

	return &Port{jp: jp, flags: flags}, nil
}

func (c *Client) UnregisterPort(bp backend.Port) error {
	p, ok := bp.(*Port)
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, bp.Name())
	}

	return statusErr("jack_port_unregister", c.jc.PortUnregister(p.jp))
}

// SetProcessCallback installs fn as the JACK process callback. A non-nil error
// from fn makes JACK evict the client.
func (c *Client) SetProcessCallback(fn backend.ProcessFunc) error {
	code := c.jc.SetProcessCallback(func(nframes uint32) int {
		if fn(nframes) != nil {
			return 1
		}
		return 0
	})

	return statusErr("jack_set_process_callback", code)
}

func (c *Client) OnShutdown(fn backend.ShutdownFunc) {
	c.jc.OnShutdown(func() {
		fn("jack server shut down")
	})
}

func (c *Client) Activate() error {
	return statusErr("jack_activate", c.jc.Activate())
}

func (c *Client) Deactivate() error {
	return statusErr("jack_deactivate", c.jc.Deactivate())
}

func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	return statusErr("jack_client_close", c.jc.Close())
}

// Connect reports EEXIST as backend.ErrAlreadyConnected.
func (c *Client) Connect(src, dst string) error {
	code := c.jc.Connect(src, dst)
	if code == int(syscall.EEXIST) {
		return backend.ErrAlreadyConnected
	}

	return statusErr("jack_connect", code)
}

func (c *Client) Disconnect(src, dst string) error {
	return statusErr("jack_disconnect", c.jc.Disconnect(src, dst))
}

func (c *Client) DisconnectAll(bp backend.Port) error {
	p, ok := bp.(*Port)
	if !ok {
		return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, bp.Name())
	}

	var errs []error
	name := p.jp.GetName()
	for _, other := range p.jp.GetConnections() {
		src, dst := name, other
		if p.flags.Has(backend.PortIsInput) {
			src, dst = other, name
		}
		errs = append(errs, c.Disconnect(src, dst))
	}

	return errors.Join(errs...)
}

func (c *Client) Ports(flags backend.PortFlags) []string {
	return c.jc.GetPorts("", jack.DEFAULT_AUDIO_TYPE, toJackFlags(flags))
}

// Port wraps a JACK audio port.
type Port struct {
	jp    *jack.Port
	flags backend.PortFlags
}

var _ backend.Port = (*Port)(nil)

func (p *Port) Name() string             { return p.jp.GetName() }
func (p *Port) ShortName() string        { return p.jp.GetShortName() }
func (p *Port) Flags() backend.PortFlags { return p.flags }
func (p *Port) Connections() []string    { return p.jp.GetConnections() }

// Buffer reinterprets JACK's sample buffer in place; no copy is made.
func (p *Port) Buffer(nframes uint32) []float32 {
	samples := p.jp.GetBuffer(nframes)
	if len(samples) == 0 {
		return nil
	}

	return unsafe.Slice((*float32)(unsafe.Pointer(&samples[0])), len(samples))
}

func toJackFlags(flags backend.PortFlags) uint64 {
	var out uint64
	if flags.Has(backend.PortIsInput) {
		out |= uint64(jack.PortIsInput)
	}
	if flags.Has(backend.PortIsOutput) {
		out |= uint64(jack.PortIsOutput)
	}
	if flags.Has(backend.PortIsPhysical) {
		out |= uint64(jack.PortIsPhysical)
	}
	return out
}

func statusErr(op string, code int) error {
	if code == 0 {
		return nil
	}

	return fmt.Errorf("%s: %w", op, jack.StrError(code))
}
