// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"context"
	"fmt"

	"github.com/ik5/audbio/backend"
	"github.com/ik5/audbio/backend/jack"
	"github.com/ik5/audbio/backend/loopback"
	"github.com/ik5/audbio/backend/oto"
	"github.com/ik5/audbio/blockio"
	"github.com/ik5/audbio/internal/config"
)

// session is a started façade plus whatever keeps its server running.
type session struct {
	*blockio.BlockingAudioIO
	stop func()
}

func (s *session) Close() error {
	err := s.BlockingAudioIO.Close()
	s.stop()
	return err
}

func (a *app) openBackend() (backend.Backend, func(context.Context), error) {
	switch a.cfg.Backend {
	case config.BackendJACK:
		return jack.Backend{}, nil, nil

	case config.BackendLoopback:
		lc := a.cfg.Loopback
		srv := loopback.NewServer(
			loopback.WithSampleRate(lc.SampleRate),
			loopback.WithBufferSize(lc.Period),
			loopback.WithPhysicalChannels(lc.Capture, lc.Playback),
		)
		return srv, func(ctx context.Context) { srv.Run(ctx) }, nil

	case config.BackendOto:
		oc := a.cfg.Oto
		return oto.Backend{SampleRate: oc.SampleRate, Channels: oc.Channels, BufferSize: oc.Period}, nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: backend %q", config.ErrInvalid, a.cfg.Backend)
	}
}

// open creates, starts and, when configured, wires a façade with the given
// port counts. The caller closes it.
func (a *app) open(ctx context.Context, inputs, outputs int) (*session, error) {
	b, run, err := a.openBackend()
	if err != nil {
		return nil, err
	}

	cc := a.cfg.Client
	bio, err := blockio.New(b, cc.Name, inputs, outputs,
		blockio.WithInputBufferSize(cc.InputBufferSize),
		blockio.WithOutputBufferSize(cc.OutputBufferSize),
		blockio.WithStartServer(cc.StartServer),
		blockio.WithLogger(a.log),
	)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s := &session{BlockingAudioIO: bio, stop: cancel}
	if run != nil {
		go run(runCtx)
	}

	if err := bio.Start(); err != nil {
		s.Close()
		return nil, err
	}

	if a.cfg.Connect.Physical {
		a.connectPhysical(s)
	}

	return s, nil
}

// connectPhysical wires port i to physical channel i where one exists.
func (a *app) connectPhysical(s *session) {
	for i := range s.OutPorts() {
		if i >= s.NumPhysicalDestinationPorts() {
			a.log.Warn("no physical playback channel for port", "port", i)
			continue
		}
		if err := s.ConnectToPhysical(i, i); err != nil {
			a.log.Warn("connect failed", "port", i, "error", err)
		}
	}

	for i := range s.InPorts() {
		if i >= s.NumPhysicalSourcePorts() {
			a.log.Warn("no physical capture channel for port", "port", i)
			continue
		}
		if err := s.ConnectFromPhysical(i, i); err != nil {
			a.log.Warn("connect failed", "port", i, "error", err)
		}
	}
}
