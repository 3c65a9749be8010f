// SPDX-License-Identifier: EPL-2.0

package oto

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/ik5/audbio/backend"
)

const (
	DefaultSampleRate = 48000
	DefaultChannels   = 2
	DefaultBufferSize = 512
)

// deviceFormat is what the process wide oto context was opened with.
type deviceFormat struct {
	sampleRate int
	channels   int
}

// check fails when req cannot be played through a context opened as f.
func (f deviceFormat) check(req deviceFormat) error {
	if f != req {
		return fmt.Errorf("%w: device already open at %d Hz, %d channels; %d Hz, %d channels requested",
			backend.ErrUnsupported, f.sampleRate, f.channels, req.sampleRate, req.channels)
	}
	return nil
}

var (
	ctxMu     sync.Mutex
	ctxFormat deviceFormat
	otoCtx    *oto.Context
)

// sharedContext returns the process wide oto context, creating it on first
// use. oto allows one context per process, so later callers must ask for the
// same format.
func sharedContext(format deviceFormat, period time.Duration) (*oto.Context, error) {
	ctxMu.Lock()
	defer ctxMu.Unlock()

	if otoCtx != nil {
		if err := ctxFormat.check(format); err != nil {
			return nil, err
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.sampleRate,
		ChannelCount: format.channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   period,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", backend.ErrUnavailable, err)
	}
	<-ready
	otoCtx, ctxFormat = ctx, format

	return otoCtx, nil
}

// Backend opens playback clients on the default sound device. Zero fields
// take the package defaults.
type Backend struct {
	SampleRate int
	Channels   int
	// BufferSize is the period length in frames.
	BufferSize uint32
}

var _ backend.Backend = Backend{}

func (b Backend) Open(name string, _ backend.OpenOptions) (backend.Client, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty client name", backend.ErrUnavailable)
	}

	rate, channels, period := b.SampleRate, b.Channels, b.BufferSize
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	if channels <= 0 {
		channels = DefaultChannels
	}
	if period == 0 {
		period = DefaultBufferSize
	}

	c := newClient(name, uint32(rate), channels, period)
	c.openPlayer = func() (player, error) {
		ctx, err := sharedContext(deviceFormat{sampleRate: rate, channels: channels}, c.periodDuration())
		if err != nil {
			return nil, err
		}
		return ctx.NewPlayer(c.stream), nil
	}

	return c, nil
}

// player is the part of *oto.Player the client drives.
type player interface {
	Play()
	Pause()
	Close() error
}

// Client is a playback client. It implements backend.Client.
type Client struct {
	name       string
	sampleRate uint32
	bufferSize uint32

	openPlayer func() (player, error)
	stream     *stream

	mu       sync.Mutex
	playback []*port
	ports    []*port
	edges    map[[2]*port]struct{}
	process  backend.ProcessFunc
	shutdown backend.ShutdownFunc
	player   player
	active   bool
	closed   bool

	frames atomic.Uint32
}

var _ backend.Client = (*Client)(nil)

func newClient(name string, rate uint32, channels int, period uint32) *Client {
	c := &Client{
		name:       name,
		sampleRate: rate,
		bufferSize: period,
		edges:      make(map[[2]*port]struct{}),
	}
	for i := range channels {
		c.playback = append(c.playback, &port{
			client: c,
			short:  fmt.Sprintf("playback_%d", i+1),
			name:   fmt.Sprintf("system:playback_%d", i+1),
			flags:  backend.PortIsInput | backend.PortIsPhysical,
			buf:    make([]float32, period),
		})
	}
	c.stream = &stream{client: c}

	return c
}

func (c *Client) periodDuration() time.Duration {
	return time.Duration(float64(time.Second) * float64(c.bufferSize) / float64(c.sampleRate))
}

func (c *Client) Name() string       { return c.name }
func (c *Client) SampleRate() uint32 { return c.sampleRate }
func (c *Client) BufferSize() uint32 { return c.bufferSize }

// CPULoad is unknown on a sound device and reported as zero.
func (c *Client) CPULoad() float64 { return 0 }
func (c *Client) IsRealtime() bool { return false }

// FrameTime counts the frames the device has pulled.
func (c *Client) FrameTime() uint32 { return c.frames.Load() }

// RegisterPort only accepts output ports.
func (c *Client) RegisterPort(name string, flags backend.PortFlags) (backend.Port, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, backend.ErrClosed
	}
	if flags != backend.PortIsOutput {
		return nil, fmt.Errorf("%w: %s port %q on a playback device", backend.ErrUnsupported, flags, name)
	}
	for _, p := range c.ports {
		if p.short == name {
			return nil, fmt.Errorf("%w: %s", backend.ErrPortExists, p.name)
		}
	}

	p := &port{
		client: c,
		short:  name,
		name:   c.name + ":" + name,
		flags:  flags,
		buf:    make([]float32, c.bufferSize),
	}
	c.ports = append(c.ports, p)

	return p, nil
}

func (c *Client) UnregisterPort(bp backend.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.ports {
		if p == bp {
			c.dropEdgesLocked(p)
			c.ports = slices.Delete(c.ports, i, i+1)
			return nil
		}
	}

	return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, bp.Name())
}

func (c *Client) SetProcessCallback(fn backend.ProcessFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return fmt.Errorf("%w: process callback of an active client", backend.ErrUnsupported)
	}
	c.process = fn

	return nil
}

func (c *Client) OnShutdown(fn backend.ShutdownFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shutdown = fn
}

// Activate starts pulling audio from the process callback.
func (c *Client) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}
	if c.player == nil {
		if c.openPlayer == nil {
			return fmt.Errorf("%w: no sound device", backend.ErrUnavailable)
		}
		p, err := c.openPlayer()
		if err != nil {
			return err
		}
		c.player = p
	}
	c.active = true
	c.player.Play()

	return nil
}

func (c *Client) Deactivate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}
	c.active = false
	if c.player != nil {
		c.player.Pause()
	}

	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.active = false
	clear(c.edges)

	if c.player != nil {
		return c.player.Close()
	}

	return nil
}

// Connect only wires own output ports to physical playback ports.
func (c *Client) Connect(src, dst string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return backend.ErrClosed
	}

	from, to := c.lookupLocked(c.ports, src), c.lookupLocked(c.playback, dst)
	if from == nil || to == nil {
		return c.missingLocked(src, dst)
	}

	e := [2]*port{from, to}
	if _, ok := c.edges[e]; ok {
		return backend.ErrAlreadyConnected
	}
	c.edges[e] = struct{}{}

	return nil
}

func (c *Client) Disconnect(src, dst string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	from, to := c.lookupLocked(c.ports, src), c.lookupLocked(c.playback, dst)
	if from == nil || to == nil {
		return c.missingLocked(src, dst)
	}
	delete(c.edges, [2]*port{from, to})

	return nil
}

func (c *Client) DisconnectAll(bp backend.Port) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := bp.(*port)
	if !ok || p.client != c {
		return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, bp.Name())
	}
	c.dropEdgesLocked(p)

	return nil
}

func (c *Client) Ports(flags backend.PortFlags) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for _, p := range slices.Concat(c.playback, c.ports) {
		if p.flags.Has(flags) {
			names = append(names, p.name)
		}
	}

	return names
}

func (c *Client) lookupLocked(ports []*port, name string) *port {
	for _, p := range ports {
		if p.name == name {
			return p
		}
	}
	return nil
}

func (c *Client) missingLocked(src, dst string) error {
	if c.lookupLocked(c.playback, src) != nil || c.lookupLocked(c.ports, dst) != nil {
		return fmt.Errorf("%w: %s -> %s", backend.ErrIncompatiblePorts, src, dst)
	}
	return fmt.Errorf("%w: %s -> %s", backend.ErrNoSuchPort, src, dst)
}

func (c *Client) dropEdgesLocked(p *port) {
	for e := range c.edges {
		if e[0] == p || e[1] == p {
			delete(c.edges, e)
		}
	}
}

// cycleLocked runs one period and mixes the output ports onto the playback
// channels. It reports false once the process callback has failed.
func (c *Client) cycleLocked() bool {
	c.frames.Add(c.bufferSize)
	for _, p := range c.playback {
		clear(p.buf)
	}
	if !c.active || c.process == nil {
		return true
	}

	if err := c.process(c.bufferSize); err != nil {
		c.active = false
		if c.shutdown != nil {
			go c.shutdown(fmt.Sprintf("process callback failed: %v", err))
		}
		return false
	}

	for e := range c.edges {
		for j, v := range e[0].buf {
			e[1].buf[j] += v
		}
	}

	return true
}

type port struct {
	client *Client
	short  string
	name   string
	flags  backend.PortFlags
	buf    []float32
}

var _ backend.Port = (*port)(nil)

func (p *port) Name() string             { return p.name }
func (p *port) ShortName() string        { return p.short }
func (p *port) Flags() backend.PortFlags { return p.flags }

func (p *port) Buffer(nframes uint32) []float32 {
	if int(nframes) > len(p.buf) {
		nframes = uint32(len(p.buf))
	}
	return p.buf[:nframes]
}

func (p *port) Connections() []string {
	c := p.client
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for e := range c.edges {
		switch p {
		case e[0]:
			names = append(names, e[1].name)
		case e[1]:
			names = append(names, e[0].name)
		}
	}

	return names
}
