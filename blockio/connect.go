// SPDX-License-Identifier: EPL-2.0

package blockio

import (
	"errors"
	"fmt"

	"github.com/ik5/audbio/backend"
)

// ConnectToPhysical wires output portIndex to physical playback channel
// physicalIndex. The client must be started. Connecting an already
// connected pair succeeds.
func (b *BlockingAudioIO) ConnectToPhysical(portIndex, physicalIndex int) error {
	out, err := b.output(portIndex)
	if err != nil {
		return err
	}

	dst, err := b.physical(backend.PortIsInput, physicalIndex)
	if err != nil {
		return err
	}

	return b.connect(out.port.Name(), dst)
}

// ConnectFromPhysical wires physical capture channel physicalIndex to input
// portIndex. The client must be started.
func (b *BlockingAudioIO) ConnectFromPhysical(portIndex, physicalIndex int) error {
	in, err := b.input(portIndex)
	if err != nil {
		return err
	}

	src, err := b.physical(backend.PortIsOutput, physicalIndex)
	if err != nil {
		return err
	}

	return b.connect(src, in.port.Name())
}

// ConnectTo wires output portIndex to the server port named dst.
func (b *BlockingAudioIO) ConnectTo(portIndex int, dst string) error {
	out, err := b.output(portIndex)
	if err != nil {
		return err
	}

	return b.connect(out.port.Name(), dst)
}

// ConnectFrom wires the server port named src to input portIndex.
func (b *BlockingAudioIO) ConnectFrom(portIndex int, src string) error {
	in, err := b.input(portIndex)
	if err != nil {
		return err
	}

	return b.connect(src, in.port.Name())
}

// DisconnectInPort drops every connection of input portIndex.
func (b *BlockingAudioIO) DisconnectInPort(portIndex int) error {
	in, err := b.input(portIndex)
	if err != nil {
		return err
	}

	return b.disconnectAll(in.port)
}

// DisconnectOutPort drops every connection of output portIndex.
func (b *BlockingAudioIO) DisconnectOutPort(portIndex int) error {
	out, err := b.output(portIndex)
	if err != nil {
		return err
	}

	return b.disconnectAll(out.port)
}

// InPort describes input portIndex.
func (b *BlockingAudioIO) InPort(portIndex int) (AudioPort, error) {
	in, err := b.input(portIndex)
	if err != nil {
		return AudioPort{}, err
	}

	return describe(in, portIndex, Input), nil
}

// OutPort describes output portIndex.
func (b *BlockingAudioIO) OutPort(portIndex int) (AudioPort, error) {
	out, err := b.output(portIndex)
	if err != nil {
		return AudioPort{}, err
	}

	return describe(out, portIndex, Output), nil
}

// NumPhysicalSourcePorts counts the server's physical capture channels.
func (b *BlockingAudioIO) NumPhysicalSourcePorts() int {
	return len(b.client.Ports(backend.PortIsPhysical | backend.PortIsOutput))
}

// NumPhysicalDestinationPorts counts the server's physical playback channels.
func (b *BlockingAudioIO) NumPhysicalDestinationPorts() int {
	return len(b.client.Ports(backend.PortIsPhysical | backend.PortIsInput))
}

func describe(ch *channel, index int, dir Direction) AudioPort {
	return AudioPort{
		Index:       index,
		Direction:   dir,
		Name:        ch.port.Name(),
		Connections: ch.port.Connections(),
	}
}

// physical resolves the index-th physical port with the given direction.
// Physical playback channels take input, capture channels produce output.
func (b *BlockingAudioIO) physical(dir backend.PortFlags, index int) (string, error) {
	ports := b.client.Ports(backend.PortIsPhysical | dir)
	if index < 0 || index >= len(ports) {
		kind := "capture"
		if dir == backend.PortIsInput {
			kind = "playback"
		}
		return "", fmt.Errorf("%w: physical %s channel %d of %d", ErrInvalidPortIndex, kind, index, len(ports))
	}

	return ports[index], nil
}

func (b *BlockingAudioIO) connect(src, dst string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.State().err(); err != nil {
		return err
	}

	err := b.client.Connect(src, dst)
	switch {
	case err == nil:
		b.log.Info("ports connected", "src", src, "dst", dst)
	case errors.Is(err, backend.ErrAlreadyConnected):
		return nil
	default:
		return fmt.Errorf("%w: %s -> %s: %w", ErrConnectionFailed, src, dst, err)
	}

	return nil
}

func (b *BlockingAudioIO) disconnectAll(p backend.Port) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.State().err(); err != nil {
		return err
	}
	if err := b.client.DisconnectAll(p); err != nil {
		return fmt.Errorf("disconnect %s: %w", p.Name(), err)
	}

	b.log.Info("port disconnected", "port", p.Name())

	return nil
}
