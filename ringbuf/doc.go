// SPDX-License-Identifier: EPL-2.0

// Package ringbuf provides a bounded, lock-free, single-producer /
// single-consumer queue.
//
// It is the hand-off structure between an audio server's real-time callback
// and ordinary goroutines: neither side ever waits on the other, and the only
// shared state is a pair of atomic cursors.
//
//	r := ringbuf.New[float32](1024)
//
//	// producer goroutine
//	if !r.Push(0.5) {
//	    // full
//	}
//
//	// consumer goroutine
//	v, ok := r.Pop()
//
// Bulk Write and Read copy in at most two contiguous segments and are what
// a process callback should use for a whole period.
//
// A Ring never blocks. Callers that need to wait for space or data park
// themselves on their own primitive and re-check Free or Len when woken.
package ringbuf
