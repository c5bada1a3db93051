// Package queue provides a thread-safe FIFO queue.
package queue

import (
	"errors"
	"sync"
)

// Unbounded disables the capacity check.
const Unbounded = 0

// ErrQueueFull is returned when attempting to enqueue to a full queue.
var ErrQueueFull = errors.New("queue is full")

// FIFO is a mutex-guarded first-in first-out queue.
// The zero value is an empty unbounded queue.
type FIFO[T any] struct {
	entries []T
	mu      sync.Mutex
	maxSize int
}

// New creates a FIFO holding at most maxSize items.
// maxSize <= 0 means unbounded.
func New[T any](maxSize int) *FIFO[T] {
	if maxSize < 0 {
		maxSize = Unbounded
	}
	return &FIFO[T]{maxSize: maxSize}
}

// Enqueue adds an item to the back of the queue.
// Returns ErrQueueFull if the queue is bounded and at capacity.
func (q *FIFO[T]) Enqueue(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxSize > 0 && len(q.entries) >= q.maxSize {
		return ErrQueueFull
	}
	q.entries = append(q.entries, item)
	return nil
}

// Dequeue removes and returns the item at the front of the queue.
func (q *FIFO[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.entries) == 0 {
		return zero, false
	}
	item := q.entries[0]
	q.entries[0] = zero
	q.entries = q.entries[1:]
	return item, true
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain removes and returns all items in insertion order.
func (q *FIFO[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.entries
	q.entries = nil
	if out == nil {
		return []T{}
	}
	return out
}
