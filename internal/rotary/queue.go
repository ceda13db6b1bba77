package rotary

import (
	"errors"
	"sync/atomic"
)

// Queue is a bounded lock-free queue for exactly one producer goroutine and
// one consumer goroutine.
type Queue struct {
	buf  []Sample
	mask uint64
	head atomic.Uint64 // next slot to read, owned by the consumer
	tail atomic.Uint64 // next slot to write, owned by the producer
}

// NewQueue creates a queue holding up to capacity samples. Capacity must be
// a power of two.
func NewQueue(capacity int) (*Queue, error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, errors.New("rotary: queue capacity must be a positive power of two")
	}
	return &Queue{
		buf:  make([]Sample, capacity),
		mask: uint64(capacity - 1),
	}, nil
}

// Push appends s. It returns false without blocking when the queue is full.
func (q *Queue) Push(s Sample) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() == uint64(len(q.buf)) {
		return false
	}
	q.buf[tail&q.mask] = s
	q.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest sample.
func (q *Queue) Pop() (Sample, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Sample{}, false
	}
	s := q.buf[head&q.mask]
	q.head.Store(head + 1)
	return s, true
}

// Len returns the number of queued samples. Called concurrently with Push
// and Pop it is a snapshot within [0, capacity].
func (q *Queue) Len() int {
	head := q.head.Load()
	n := q.tail.Load() - head
	return int(min(n, uint64(len(q.buf))))
}
