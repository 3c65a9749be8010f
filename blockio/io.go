// SPDX-License-Identifier: EPL-2.0

package blockio

import "context"

// Write appends sample to output portIndex, blocking while its buffer is
// full.
func (b *BlockingAudioIO) Write(portIndex int, sample float32) error {
	return b.WriteContext(context.Background(), portIndex, sample)
}

// WriteContext is Write that gives up with ctx.Err() when ctx ends first.
func (b *BlockingAudioIO) WriteContext(ctx context.Context, portIndex int, sample float32) error {
	out, err := b.output(portIndex)
	if err != nil {
		return err
	}

	for {
		if err := b.State().err(); err != nil {
			return err
		}
		if out.ring.Push(sample) {
			return nil
		}

		select {
		case <-out.notify:
		case <-b.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// TryWrite appends sample to output portIndex or fails with ErrWouldBlock
// when its buffer is full.
func (b *BlockingAudioIO) TryWrite(portIndex int, sample float32) error {
	out, err := b.output(portIndex)
	if err != nil {
		return err
	}
	if err := b.State().err(); err != nil {
		return err
	}
	if !out.ring.Push(sample) {
		return ErrWouldBlock
	}

	return nil
}

// Read removes the oldest captured sample from input portIndex, blocking
// while its buffer is empty.
func (b *BlockingAudioIO) Read(portIndex int) (float32, error) {
	return b.ReadContext(context.Background(), portIndex)
}

// ReadContext is Read that gives up with ctx.Err() when ctx ends first.
func (b *BlockingAudioIO) ReadContext(ctx context.Context, portIndex int) (float32, error) {
	in, err := b.input(portIndex)
	if err != nil {
		return 0, err
	}

	for {
		if err := b.State().err(); err != nil {
			return 0, err
		}
		if v, ok := in.ring.Pop(); ok {
			return v, nil
		}

		select {
		case <-in.notify:
		case <-b.done:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// TryRead removes the oldest captured sample from input portIndex or fails
// with ErrWouldBlock when its buffer is empty.
func (b *BlockingAudioIO) TryRead(portIndex int) (float32, error) {
	in, err := b.input(portIndex)
	if err != nil {
		return 0, err
	}
	if err := b.State().err(); err != nil {
		return 0, err
	}

	v, ok := in.ring.Pop()
	if !ok {
		return 0, ErrWouldBlock
	}

	return v, nil
}

// Drain blocks until the server has taken every sample queued on the
// output ports.
func (b *BlockingAudioIO) Drain(ctx context.Context) error {
	for _, out := range b.outputs {
		for out.ring.Len() > 0 {
			if err := b.State().err(); err != nil {
				return err
			}

			select {
			case <-out.notify:
			case <-b.done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return nil
}
