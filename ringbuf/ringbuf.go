// SPDX-License-Identifier: EPL-2.0

package ringbuf

import "sync/atomic"

// cacheLine keeps the producer and consumer cursors on separate cache lines.
const cacheLine = 64

// Ring is a fixed capacity FIFO that is safe for exactly one producer
// goroutine and one consumer goroutine running at the same time, without
// locks. The identities of the producer and consumer must not change while
// both are active.
//
// The producer owns tail and the consumer owns head; both cursors only grow,
// so the fill level is always tail - head.
type Ring[T any] struct {
	buf  []T
	size uint64

	_    [cacheLine]byte
	head atomic.Uint64
	_    [cacheLine - 8]byte
	tail atomic.Uint64
	_    [cacheLine - 8]byte
}

// New returns a ring that holds up to capacity items.
// capacity must be positive.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic(ErrInvalidCapacity)
	}

	return &Ring[T]{
		buf:  make([]T, capacity),
		size: uint64(capacity),
	}
}

// Cap returns the number of items the ring can hold.
func (r *Ring[T]) Cap() int { return int(r.size) }

// Len returns the number of items that can be read right now.
func (r *Ring[T]) Len() int {
	tail := r.tail.Load()
	head := r.head.Load()
	return int(tail - head)
}

// Free returns the number of items that can be written right now.
func (r *Ring[T]) Free() int { return int(r.size) - r.Len() }

// Push appends v. It reports false, without blocking, when the ring is full.
// Producer only.
func (r *Ring[T]) Push(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() == r.size {
		return false
	}

	r.buf[tail%r.size] = v
	r.tail.Store(tail + 1)

	return true
}

// Pop removes the oldest item. It reports false, without blocking, when the
// ring is empty. Consumer only.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T

	head := r.head.Load()
	if r.tail.Load() == head {
		return zero, false
	}

	v := r.buf[head%r.size]
	r.buf[head%r.size] = zero
	r.head.Store(head + 1)

	return v, true
}

// Write appends as many items of p as fit and returns how many were written.
// Producer only.
func (r *Ring[T]) Write(p []T) int {
	tail := r.tail.Load()
	free := r.size - (tail - r.head.Load())

	n := min(uint64(len(p)), free)
	if n == 0 {
		return 0
	}

	start := tail % r.size
	first := min(n, r.size-start)
	copy(r.buf[start:start+first], p[:first])
	copy(r.buf[:n-first], p[first:n])

	r.tail.Store(tail + n)

	return int(n)
}

// Read moves up to len(p) of the oldest items into p and returns how many
// were read. Consumer only.
func (r *Ring[T]) Read(p []T) int {
	head := r.head.Load()
	avail := r.tail.Load() - head

	n := min(uint64(len(p)), avail)
	if n == 0 {
		return 0
	}

	start := head % r.size
	first := min(n, r.size-start)
	copy(p[:first], r.buf[start:start+first])
	copy(p[first:n], r.buf[:n-first])

	r.head.Store(head + n)

	return int(n)
}

// Reset empties the ring. It is not safe while a producer or consumer is
// active.
func (r *Ring[T]) Reset() {
	clear(r.buf)
	r.head.Store(0)
	r.tail.Store(0)
}
