// SPDX-License-Identifier: MIT

/*
Package ringbuf implements a bounded single-producer/single-consumer ring
buffer for handing values to and from the audio callback.

Both ends are wait-free: TryPush fails instead of waiting when the ring is
full and TryPop fails when it is empty. The overflow policy is drop-newest;
the rejected value is counted in Dropped. Exactly one goroutine may push and
exactly one goroutine may pop at a time.

Layout:

	head (consumer) ... pad ... tail (producer) ... pad ... slots[cap]

head and tail increase monotonically and index slots through a power-of-two
mask, so tail-head is always the number of buffered values.
*/
package ringbuf

import (
	"sync/atomic"

	"polysynth/pkg/bitint"

	"golang.org/x/sys/cpu"
)

// Ring is a bounded SPSC queue of T.
type Ring[T any] struct {
	head    atomic.Uint64 // next slot to read, written by the consumer
	_       cpu.CacheLinePad
	tail    atomic.Uint64 // next slot to write, written by the producer
	_       cpu.CacheLinePad
	dropped atomic.Uint64
	_       cpu.CacheLinePad

	mask  uint64
	slots []T
}

// New returns a ring holding at least capacity values. The capacity is
// rounded up to a power of two; values below 1 become 1.
func New[T any](capacity int) *Ring[T] {
	size := bitint.NextPowerOfTwo(capacity)
	mask, _ := bitint.Mask(size)
	return &Ring[T]{
		mask:  mask,
		slots: make([]T, size),
	}
}

// TryPush appends v. It returns false, and counts a drop, when the ring is
// full. Producer side only.
func (r *Ring[T]) TryPush(v T) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() > r.mask {
		r.dropped.Add(1)
		return false
	}
	r.slots[tail&r.mask] = v
	r.tail.Store(tail + 1)
	return true
}

// TryPop removes the oldest value. ok is false when the ring is empty.
// Consumer side only.
func (r *Ring[T]) TryPop() (v T, ok bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return v, false
	}
	v = r.slots[head&r.mask]
	r.head.Store(head + 1)
	return v, true
}

// PopInto fills dst with up to len(dst) values and returns how many were
// copied. Consumer side only.
func (r *Ring[T]) PopInto(dst []T) int {
	head := r.head.Load()
	available := r.tail.Load() - head
	n := min(uint64(len(dst)), available)
	for i := range n {
		dst[i] = r.slots[(head+i)&r.mask]
	}
	r.head.Store(head + n)
	return int(n)
}

// Len returns the number of buffered values. It is a snapshot and may be
// stale by the time the caller looks at it.
func (r *Ring[T]) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.slots)
}

// Dropped returns how many pushes were rejected because the ring was full.
func (r *Ring[T]) Dropped() uint64 {
	return r.dropped.Load()
}
