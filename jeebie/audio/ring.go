package audio

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// StereoFrame is one output sample for both speakers.
type StereoFrame struct {
	Left  int16
	Right int16
}

// RingBuffer is a lock-free single-producer single-consumer queue. The
// emulator goroutine pushes, the audio device callback pops.
type RingBuffer[T any] struct {
	buf  []T
	mask uint64
	head atomic.Uint64 // next write, owned by the producer
	tail atomic.Uint64 // next read, owned by the consumer
}

// NewRingBuffer returns a ring holding at least capacity items, rounded up
// to a power of two.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("audio: invalid ring capacity %d", capacity))
	}
	size := uint64(1) << bits.Len64(uint64(capacity-1))
	return &RingBuffer[T]{
		buf:  make([]T, size),
		mask: size - 1,
	}
}

// Push appends v, dropping it when the ring is full.
func (r *RingBuffer[T]) Push(v T) bool {
	head := r.head.Load()
	if head-r.tail.Load() == uint64(len(r.buf)) {
		return false
	}
	r.buf[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// Pop removes the oldest item, or returns def when the ring is empty.
func (r *RingBuffer[T]) Pop(def T) T {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return def
	}
	v := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return v
}

// PopInto fills dst with as many items as are available and returns the count.
func (r *RingBuffer[T]) PopInto(dst []T) int {
	tail := r.tail.Load()
	n := min(int(r.head.Load()-tail), len(dst))
	for i := range n {
		dst[i] = r.buf[(tail+uint64(i))&r.mask]
	}
	r.tail.Store(tail + uint64(n))
	return n
}

func (r *RingBuffer[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

func (r *RingBuffer[T]) Cap() int {
	return len(r.buf)
}
