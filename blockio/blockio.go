// SPDX-License-Identifier: EPL-2.0

package blockio

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ik5/audbio/backend"
)

// BlockingAudioIO presents blocking per-port Read and Write calls over a
// backend client whose process callback runs once per period.
//
// The number of ports is fixed by New. Each port may have one goroutine
// calling Read or Write at a time; different ports are independent. Lifecycle
// methods are safe for concurrent use.
type BlockingAudioIO struct {
	client     backend.Client
	log        *slog.Logger
	inputs     []*channel
	outputs    []*channel
	sampleRate uint32
	period     uint32

	// mu serializes lifecycle and connection calls. The process callback
	// never takes it.
	mu       sync.Mutex
	state    atomic.Int32
	done     chan struct{}
	doneOnce sync.Once

	periods   atomic.Uint64
	underruns atomic.Uint64
	overruns  atomic.Uint64
}

// Stats counts what happened in the process callback.
type Stats struct {
	// Periods is the number of completed callback invocations.
	Periods uint64
	// Underruns is the number of output samples padded with silence because
	// an output buffer ran dry.
	Underruns uint64
	// Overruns is the number of captured samples dropped because an input
	// buffer was full.
	Overruns uint64
}

// New registers client name with b and creates numInputs input ports
// ("input0".."inputN-1") and numOutputs output ports ("output0".."outputM-1").
// The client is not active until Start.
func New(b backend.Backend, name string, numInputs, numOutputs int, opts ...Option) (*BlockingAudioIO, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: no backend", ErrBackendUnavailable)
	}
	if numInputs < 0 || numOutputs < 0 {
		return nil, fmt.Errorf("%w: %d inputs, %d outputs", ErrInvalidPortIndex, numInputs, numOutputs)
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	client, err := b.Open(name, backend.OpenOptions{StartServer: o.startServer})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	bio := &BlockingAudioIO{
		client:     client,
		log:        o.logger.With("client", client.Name()),
		sampleRate: client.SampleRate(),
		period:     client.BufferSize(),
		done:       make(chan struct{}),
	}
	if bio.sampleRate == 0 || bio.period == 0 {
		client.Close()
		return nil, fmt.Errorf("%w: server reports %d Hz, %d frames per period",
			ErrBackendUnavailable, bio.sampleRate, bio.period)
	}

	if err := bio.register(numInputs, numOutputs, o); err != nil {
		client.Close()
		return nil, err
	}

	bio.log.Info("client opened",
		"sample_rate", bio.sampleRate,
		"period", bio.period,
		"inputs", numInputs,
		"outputs", numOutputs,
	)

	return bio, nil
}

func (b *BlockingAudioIO) register(numInputs, numOutputs int, o options) error {
	inSize := bufferSize(o.inputBufferSize, b.period, b.sampleRate)
	outSize := bufferSize(o.outputBufferSize, b.period, b.sampleRate)

	for i := range numInputs {
		p, err := b.client.RegisterPort(fmt.Sprintf("input%d", i), backend.PortIsInput)
		if err != nil {
			return fmt.Errorf("register input%d: %w", i, err)
		}
		b.inputs = append(b.inputs, newChannel(p, inSize))
	}
	for i := range numOutputs {
		p, err := b.client.RegisterPort(fmt.Sprintf("output%d", i), backend.PortIsOutput)
		if err != nil {
			return fmt.Errorf("register output%d: %w", i, err)
		}
		b.outputs = append(b.outputs, newChannel(p, outSize))
	}

	if err := b.client.SetProcessCallback(b.process); err != nil {
		return fmt.Errorf("set process callback: %w", err)
	}
	b.client.OnShutdown(b.shutdown)

	return nil
}

// Start activates the client; the backend then runs the process callback
// once per period.
func (b *BlockingAudioIO) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch s := b.State(); s {
	case Inactive:
	case Active:
		return ErrAlreadyStarted
	default:
		return s.err()
	}

	if err := b.client.Activate(); err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	if !b.state.CompareAndSwap(int32(Inactive), int32(Active)) {
		// The server went away while activating.
		return b.State().err()
	}

	b.log.Info("client activated")

	return nil
}

// Stop deactivates the client. Blocked and later Read and Write calls fail
// with ErrBackendDisconnected. Stopping is terminal; calling Stop again is a
// no-op.
func (b *BlockingAudioIO) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var wasActive bool
	for {
		s := b.State()
		if s != Inactive && s != Active {
			return nil
		}
		if b.state.CompareAndSwap(int32(s), int32(Stopped)) {
			wasActive = s == Active
			break
		}
	}
	b.closeDone()

	var err error
	if wasActive {
		if err = b.client.Deactivate(); err != nil {
			err = fmt.Errorf("deactivate: %w", err)
		}
	}

	st := b.Stats()
	b.log.Info("client stopped",
		"periods", st.Periods,
		"underruns", st.Underruns,
		"overruns", st.Overruns,
	)

	return err
}

// Close stops the client if needed, unregisters its ports and closes it.
// Teardown is best effort: every step runs and their errors are joined.
func (b *BlockingAudioIO) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := State(b.state.Swap(int32(Closed)))
	if prev == Closed {
		return nil
	}
	b.closeDone()

	var errs []error
	if prev == Active {
		if err := b.client.Deactivate(); err != nil {
			errs = append(errs, fmt.Errorf("deactivate: %w", err))
		}
	}
	if prev != Disconnected {
		for _, ch := range slices.Concat(b.inputs, b.outputs) {
			if err := b.client.UnregisterPort(ch.port); err != nil {
				errs = append(errs, fmt.Errorf("unregister %s: %w", ch.port.Name(), err))
			}
		}
	}
	if err := b.client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close client: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		b.log.Warn("client closed with errors", "error", err)
	} else {
		b.log.Info("client closed")
	}

	return err
}

// shutdown runs when the audio server disappears.
func (b *BlockingAudioIO) shutdown(reason string) {
	for {
		s := b.State()
		if s != Inactive && s != Active {
			return
		}
		if b.state.CompareAndSwap(int32(s), int32(Disconnected)) {
			break
		}
	}
	b.closeDone()

	b.log.Warn("audio server shut down", "reason", reason)
}

func (b *BlockingAudioIO) closeDone() {
	b.doneOnce.Do(func() { close(b.done) })
}

// State returns the current lifecycle stage.
func (b *BlockingAudioIO) State() State { return State(b.state.Load()) }

// Stats returns the callback counters.
func (b *BlockingAudioIO) Stats() Stats {
	return Stats{
		Periods:   b.periods.Load(),
		Underruns: b.underruns.Load(),
		Overruns:  b.overruns.Load(),
	}
}

// SampleRate is the server sample rate in Hz. It does not change during a
// session.
func (b *BlockingAudioIO) SampleRate() int { return int(b.sampleRate) }

// BufferSize is the period length in frames.
func (b *BlockingAudioIO) BufferSize() int { return int(b.period) }

// Name is the client name granted by the server.
func (b *BlockingAudioIO) Name() string { return b.client.Name() }

// InPorts is the number of input ports.
func (b *BlockingAudioIO) InPorts() int { return len(b.inputs) }

// OutPorts is the number of output ports.
func (b *BlockingAudioIO) OutPorts() int { return len(b.outputs) }

// CPULoad is the server's DSP load in percent.
func (b *BlockingAudioIO) CPULoad() float64 { return b.client.CPULoad() }

// IsRealtime reports whether the server runs process callbacks with
// real-time scheduling.
func (b *BlockingAudioIO) IsRealtime() bool { return b.client.IsRealtime() }

// FrameTime is the server's running frame counter. It wraps around.
func (b *BlockingAudioIO) FrameTime() uint32 { return b.client.FrameTime() }

// InputBufferSize and OutputBufferSize report the per-port buffer capacity in
// samples after clamping.
func (b *BlockingAudioIO) InputBufferSize() int  { return capacity(b.inputs) }
func (b *BlockingAudioIO) OutputBufferSize() int { return capacity(b.outputs) }

func capacity(chans []*channel) int {
	if len(chans) == 0 {
		return 0
	}
	return chans[0].ring.Cap()
}

func (b *BlockingAudioIO) input(i int) (*channel, error) {
	if i < 0 || i >= len(b.inputs) {
		return nil, fmt.Errorf("%w: input %d of %d", ErrInvalidPortIndex, i, len(b.inputs))
	}
	return b.inputs[i], nil
}

func (b *BlockingAudioIO) output(i int) (*channel, error) {
	if i < 0 || i >= len(b.outputs) {
		return nil, fmt.Errorf("%w: output %d of %d", ErrInvalidPortIndex, i, len(b.outputs))
	}
	return b.outputs[i], nil
}
