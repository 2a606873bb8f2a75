// Package lockfree provides lock-free data structures for high-churn concurrent processing
package lockfree

import (
	"runtime"
	"sync/atomic"
)

// MPMCQueue implements a bounded lock-free multi-producer multi-consumer queue
// using sequence numbers for ordering and cache-line padding to avoid false sharing.
type MPMCQueue[T any] struct {
	buffer   []slot[T]
	capacity uint64
	mask     uint64

	// Separate enqueue and dequeue indices on different cache lines
	enqueuePos atomic.Uint64
	_padding1  [7]uint64 //nolint:unused

	dequeuePos atomic.Uint64
	_padding2  [7]uint64 //nolint:unused
}

// slot represents a queue slot with sequence number for ordering
type slot[T any] struct {
	sequence atomic.Uint64
	data     T
}

// NewMPMCQueue creates a new multi-producer multi-consumer queue with the given capacity.
// Capacity will be rounded up to the next power of 2 for efficient masking.
func NewMPMCQueue[T any](capacity int) *MPMCQueue[T] {
	// Round up to next power of 2
	cap := uint64(2)
	for cap < uint64(capacity) {
		cap <<= 1
	}

	q := &MPMCQueue[T]{
		buffer:   make([]slot[T], cap),
		capacity: cap,
		mask:     cap - 1,
	}

	// Initialize sequence numbers
	for i := uint64(0); i < cap; i++ {
		q.buffer[i].sequence.Store(i)
	}

	return q
}

// Enqueue adds an item to the queue. It returns false if the queue is full.
func (q *MPMCQueue[T]) Enqueue(item T) bool {
	for {
		pos := q.enqueuePos.Load()
		slot := &q.buffer[pos&q.mask]
		seq := slot.sequence.Load()

		diff := int64(seq) - int64(pos)

		if diff == 0 {
			// Slot is ready for enqueue
			if q.enqueuePos.CompareAndSwap(pos, pos+1) {
				// We own this slot
				slot.data = item
				slot.sequence.Store(pos + 1)
				return true
			}
		} else if diff < 0 {
			// Queue is full
			return false
		}

		// Slot not ready yet, retry
		runtime.Gosched()
	}
}

// Dequeue removes an item from the queue. It returns false if the queue is empty.
func (q *MPMCQueue[T]) Dequeue() (T, bool) {
	var zero T
	for {
		pos := q.dequeuePos.Load()
		slot := &q.buffer[pos&q.mask]
		seq := slot.sequence.Load()

		diff := int64(seq) - int64(pos+1)

		if diff == 0 {
			// Slot is ready for dequeue
			if q.dequeuePos.CompareAndSwap(pos, pos+1) {
				// We own this slot
				item := slot.data
				slot.data = zero
				slot.sequence.Store(pos + q.capacity)
				return item, true
			}
		} else if diff < 0 {
			// Queue is empty
			return zero, false
		}

		// Slot not ready yet, retry
		runtime.Gosched()
	}
}

// Capacity returns the rounded-up capacity of the queue.
func (q *MPMCQueue[T]) Capacity() int {
	return int(q.capacity)
}

// Len returns the number of queued items.
// This is an approximation in concurrent scenarios.
func (q *MPMCQueue[T]) Len() int {
	enq := q.enqueuePos.Load()
	deq := q.dequeuePos.Load()
	if enq <= deq {
		return 0
	}
	return int(enq - deq)
}

// AtomicCounter provides a lock-free counter for statistics and metrics collection
// with atomic operations for thread-safe updates.
type AtomicCounter struct {
	value atomic.Uint64
}

// NewAtomicCounter creates a new atomic counter initialized to zero.
func NewAtomicCounter() *AtomicCounter {
	return &AtomicCounter{}
}

// Increment atomically increments the counter by one.
func (c *AtomicCounter) Increment() {
	c.value.Add(1)
}

// Add atomically adds the given delta value to the counter.
func (c *AtomicCounter) Add(delta uint64) {
	c.value.Add(delta)
}

// Get returns the current value of the counter atomically.
func (c *AtomicCounter) Get() uint64 {
	return c.value.Load()
}

// Reset atomically resets the counter to zero and returns the previous value.
func (c *AtomicCounter) Reset() uint64 {
	return c.value.Swap(0)
}
