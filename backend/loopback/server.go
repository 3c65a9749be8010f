// SPDX-License-Identifier: EPL-2.0

package loopback

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/audbio/backend"
	"github.com/ik5/audbio/ringbuf"
)

const (
	DefaultSampleRate = 48000
	DefaultBufferSize = 256
	DefaultChannels   = 2

	systemName = "system"
)

// Option configures a Server.
type Option func(*Server)

// WithSampleRate sets the server sample rate in Hz.
func WithSampleRate(rate uint32) Option {
	return func(s *Server) { s.sampleRate = rate }
}

// WithBufferSize sets the period length in frames.
func WithBufferSize(frames uint32) Option {
	return func(s *Server) { s.bufferSize = frames }
}

// WithPhysicalChannels sets how many physical capture and playback channels
// the server exposes.
func WithPhysicalChannels(capture, playback int) Option {
	return func(s *Server) {
		s.numCapture = capture
		s.numPlayback = playback
	}
}

// WithRecording keeps everything emitted on the physical playback channels
// so it can be inspected with Played.
func WithRecording() Option {
	return func(s *Server) { s.recording = true }
}

// Server is an in-process audio server. Physical playback channel N is wired
// to physical capture channel N by a loopback cable with one period of
// latency.
//
// The process cycle runs under the server lock, so a client's process
// callback must not call back into the server.
type Server struct {
	sampleRate  uint32
	bufferSize  uint32
	numCapture  int
	numPlayback int
	recording   bool

	mu       sync.Mutex
	capture  []*port
	playback []*port
	clients  []*Client
	edges    map[edge]struct{}
	loop     [][]float32
	fed      []*ringbuf.Ring[float32]
	played   [][]float32
	cycles   uint64
	down     bool

	frames atomic.Uint32
}

var _ backend.Backend = (*Server)(nil)

type edge struct {
	src, dst *port
}

// NewServer creates a running server.
func NewServer(opts ...Option) *Server {
	s := &Server{
		sampleRate:  DefaultSampleRate,
		bufferSize:  DefaultBufferSize,
		numCapture:  DefaultChannels,
		numPlayback: DefaultChannels,
		edges:       make(map[edge]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	for i := range s.numCapture {
		s.capture = append(s.capture, s.newPort(nil,
			fmt.Sprintf("capture_%d", i+1), backend.PortIsOutput|backend.PortIsPhysical))
		s.fed = append(s.fed, ringbuf.New[float32](int(s.sampleRate)))
	}
	for i := range s.numPlayback {
		s.playback = append(s.playback, s.newPort(nil,
			fmt.Sprintf("playback_%d", i+1), backend.PortIsInput|backend.PortIsPhysical))
		s.loop = append(s.loop, make([]float32, s.bufferSize))
	}
	s.played = make([][]float32, s.numPlayback)

	return s
}

func (s *Server) newPort(c *Client, short string, flags backend.PortFlags) *port {
	owner := systemName
	if c != nil {
		owner = c.name
	}

	return &port{
		srv:   s,
		owner: c,
		short: short,
		name:  owner + ":" + short,
		flags: flags,
		buf:   make([]float32, s.bufferSize),
	}
}

// SampleRate returns the server sample rate.
func (s *Server) SampleRate() uint32 { return s.sampleRate }

// BufferSize returns the period length in frames.
func (s *Server) BufferSize() uint32 { return s.bufferSize }

// Open registers a new client. A name already in use gets a "-NN" suffix.
func (s *Server) Open(name string, _ backend.OpenOptions) (backend.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.down {
		return nil, backend.ErrUnavailable
	}
	if name == "" || name == systemName {
		return nil, fmt.Errorf("%w: invalid client name %q", backend.ErrUnavailable, name)
	}

	unique := name
	for i := 1; s.clientLocked(unique) != nil; i++ {
		unique = fmt.Sprintf("%s-%02d", name, i)
	}

	c := &Client{srv: s, name: unique}
	s.clients = append(s.clients, c)

	return c, nil
}

func (s *Server) clientLocked(name string) *Client {
	for _, c := range s.clients {
		if c.name == name {
			return c
		}
	}
	return nil
}

// Feed queues samples on physical capture channel (0-based). They are mixed
// with the loopback signal, one period at a time, starting with the next
// cycle. Samples that do not fit within one second of backlog are dropped;
// Feed returns how many were queued.
func (s *Server) Feed(channel int, samples []float32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channel < 0 || channel >= len(s.fed) {
		return 0, fmt.Errorf("%w: capture channel %d", backend.ErrNoSuchPort, channel)
	}

	return s.fed[channel].Write(samples), nil
}

// Played returns a copy of everything emitted on physical playback channel
// (0-based) since the server was created. It is empty unless the server was
// built WithRecording.
func (s *Server) Played(channel int) []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channel < 0 || channel >= len(s.played) {
		return nil
	}

	return slices.Clone(s.played[channel])
}

// Cycles returns the number of completed process cycles.
func (s *Server) Cycles() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cycles
}

// Cycle runs one process period: capture, every active client in
// registration order, then playback.
func (s *Server) Cycle() error {
	s.mu.Lock()

	if s.down {
		s.mu.Unlock()
		return backend.ErrClosed
	}

	for i, p := range s.capture {
		clear(p.buf)
		if i < len(s.loop) {
			copy(p.buf, s.loop[i])
		}
		s.mixFed(i, p.buf)
	}

	var failed []*Client
	for _, c := range s.clients {
		if !c.active || c.process == nil {
			continue
		}
		for _, p := range c.ports {
			if p.flags.Has(backend.PortIsInput) {
				s.gatherLocked(p)
			}
		}
		if err := c.process(s.bufferSize); err != nil {
			c.active = false
			c.failure = err
			failed = append(failed, c)
		}
	}

	for i, p := range s.playback {
		s.gatherLocked(p)
		copy(s.loop[i], p.buf)
		if s.recording {
			s.played[i] = append(s.played[i], p.buf...)
		}
	}

	s.cycles++
	s.frames.Add(s.bufferSize)
	s.mu.Unlock()

	for _, c := range failed {
		if c.shutdown != nil {
			c.shutdown(fmt.Sprintf("process callback failed: %v", c.failure))
		}
	}

	return nil
}

// mixFed adds up to one period of fed samples into buf.
func (s *Server) mixFed(channel int, buf []float32) {
	for j := range buf {
		v, ok := s.fed[channel].Pop()
		if !ok {
			return
		}
		buf[j] += v
	}
}

// gatherLocked fills an input port's buffer with the sum of its sources.
// Ports of inactive clients are silent.
func (s *Server) gatherLocked(dst *port) {
	clear(dst.buf)
	for e := range s.edges {
		if e.dst != dst {
			continue
		}
		if e.src.owner != nil && !e.src.owner.active {
			continue
		}
		for j, v := range e.src.buf {
			dst.buf[j] += v
		}
	}
}

// Run cycles the server in real time until ctx ends or the server is shut
// down.
func (s *Server) Run(ctx context.Context) error {
	period := time.Duration(float64(time.Second) * float64(s.bufferSize) / float64(s.sampleRate))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Cycle(); err != nil {
				if err == backend.ErrClosed {
					return nil
				}
				return err
			}
		}
	}
}

// Shutdown stops the server. Every open client receives its shutdown
// callback and becomes unusable.
func (s *Server) Shutdown(reason string) {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return
	}
	s.down = true
	clients := slices.Clone(s.clients)
	for _, c := range clients {
		c.active = false
		c.closed = true
	}
	s.mu.Unlock()

	for _, c := range clients {
		if c.shutdown != nil {
			c.shutdown(reason)
		}
	}
}

// lookupLocked finds a port by full name.
func (s *Server) lookupLocked(name string) *port {
	for _, p := range s.capture {
		if p.name == name {
			return p
		}
	}
	for _, p := range s.playback {
		if p.name == name {
			return p
		}
	}
	for _, c := range s.clients {
		for _, p := range c.ports {
			if p.name == name {
				return p
			}
		}
	}
	return nil
}

func (s *Server) portsLocked(flags backend.PortFlags) []string {
	var names []string
	add := func(ports []*port) {
		for _, p := range ports {
			if p.flags.Has(flags) {
				names = append(names, p.name)
			}
		}
	}

	add(s.capture)
	add(s.playback)
	for _, c := range s.clients {
		add(c.ports)
	}

	return names
}

func (s *Server) connectLocked(srcName, dstName string) error {
	src := s.lookupLocked(srcName)
	if src == nil {
		return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, srcName)
	}
	dst := s.lookupLocked(dstName)
	if dst == nil {
		return fmt.Errorf("%w: %s", backend.ErrNoSuchPort, dstName)
	}
	if !src.flags.Has(backend.PortIsOutput) || !dst.flags.Has(backend.PortIsInput) {
		return fmt.Errorf("%w: %s -> %s", backend.ErrIncompatiblePorts, srcName, dstName)
	}

	e := edge{src: src, dst: dst}
	if _, ok := s.edges[e]; ok {
		return backend.ErrAlreadyConnected
	}
	s.edges[e] = struct{}{}

	return nil
}

func (s *Server) disconnectLocked(srcName, dstName string) error {
	src := s.lookupLocked(srcName)
	dst := s.lookupLocked(dstName)
	if src == nil || dst == nil {
		return fmt.Errorf("%w: %s -> %s", backend.ErrNoSuchPort, srcName, dstName)
	}

	e := edge{src: src, dst: dst}
	if _, ok := s.edges[e]; !ok {
		return fmt.Errorf("%w: %s -> %s not connected", backend.ErrNoSuchPort, srcName, dstName)
	}
	delete(s.edges, e)

	return nil
}

func (s *Server) dropEdgesLocked(p *port) {
	for e := range s.edges {
		if e.src == p || e.dst == p {
			delete(s.edges, e)
		}
	}
}

func (s *Server) connectionsLocked(p *port) []string {
	var names []string
	for e := range s.edges {
		switch p {
		case e.src:
			names = append(names, e.dst.name)
		case e.dst:
			names = append(names, e.src.name)
		}
	}
	slices.Sort(names)

	return names
}
