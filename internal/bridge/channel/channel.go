// Package channel provides an unbounded single-producer, single-consumer
// FIFO queue with close semantics, used to carry user turns into an engine
// invocation and normalized events out of it.
package channel

import (
	"context"
	"sync"
)

// Queue is an async FIFO with a close flag. Values are delivered in push
// order. Push after Close is silently discarded; Close is idempotent.
// At most one consumer may block in Next at a time.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	waiter chan struct{}
}

// New creates a new open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends a value to the queue, waking a blocked consumer if one is
// parked. If the queue is closed the value is discarded.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.items = append(q.items, v)
	q.wake()
}

// Close marks the queue closed. A blocked consumer observes end-of-stream
// once the remaining items are drained. Closing an already closed queue is
// a no-op.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	q.wake()
}

// Next returns the next value in push order. When the queue is empty and
// open, it blocks until a value is pushed, the queue is closed, or the
// context is cancelled. The second return value is false when the stream
// has ended (closed and drained, or context cancelled).
func (q *Queue[T]) Next(ctx context.Context) (T, bool) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, true
		}
		if q.closed {
			q.mu.Unlock()
			return zero, false
		}

		wait := make(chan struct{})
		q.waiter = wait
		q.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			q.mu.Lock()
			if q.waiter == wait {
				q.waiter = nil
			}
			q.mu.Unlock()
			return zero, false
		}
	}
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether the queue has been closed.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// wake releases the parked consumer, if any. Caller must hold q.mu.
func (q *Queue[T]) wake() {
	if q.waiter != nil {
		close(q.waiter)
		q.waiter = nil
	}
}
