package queue

import (
	"errors"
	"sync"
)

var (
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("queue closed")

	// ErrFull is returned by Send when a capped queue holds MaxLen items.
	ErrFull = errors.New("queue full")
)

// Growable is a thread-safe FIFO that automatically doubles
// its capacity when it reaches 70% full.
//
// A zero maxLen means the queue never rejects an item; otherwise Send
// rejects the newest item once maxLen items are waiting.
type Growable[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []T
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	maxLen   int
	closed   bool

	// Stats
	totalReceived int64
	totalSent     int64
	rejected      int64
	resizeCount   int
}

// New creates an unbounded queue with the given initial capacity.
func New[T any](initialCapacity int) *Growable[T] {
	return NewCapped[T](initialCapacity, 0)
}

// NewCapped creates a queue that holds at most maxLen items (0 = unbounded).
func NewCapped[T any](initialCapacity, maxLen int) *Growable[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if maxLen < 0 {
		maxLen = 0
	}
	q := &Growable[T]{
		buf:      make([]T, initialCapacity),
		capacity: initialCapacity,
		maxLen:   maxLen,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send appends an item. Grows the ring if at 70% capacity.
func (q *Growable[T]) Send(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	if q.maxLen > 0 && q.count >= q.maxLen {
		q.rejected++
		return ErrFull
	}

	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalReceived++

	q.cond.Signal()
	return nil
}

// Receive removes and returns the oldest item.
// Blocks until an item is available or the queue is closed.
// Returns the zero value and false once the queue is closed and empty.
func (q *Growable[T]) Receive() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// TryReceive removes and returns the oldest item without blocking.
func (q *Growable[T]) TryReceive() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// DrainTo removes up to max items (all of them when max <= 0).
func (q *Growable[T]) DrainTo(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}

	n := q.count
	if max > 0 && max < n {
		n = max
	}

	result := make([]T, n)
	for i := 0; i < n; i++ {
		result[i] = q.popLocked()
	}
	return result
}

// Close closes the queue. After closing, Send returns ErrClosed.
// Receivers get the remaining items, then the closed signal.
func (q *Growable[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Growable[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of waiting items.
func (q *Growable[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Cap returns the current ring capacity.
func (q *Growable[T]) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// Stats returns queue statistics.
func (q *Growable[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Count:         q.count,
		Capacity:      q.capacity,
		MaxLen:        q.maxLen,
		TotalReceived: q.totalReceived,
		TotalSent:     q.totalSent,
		Rejected:      q.rejected,
		ResizeCount:   q.resizeCount,
	}
}

// Stats contains queue statistics.
type Stats struct {
	Count         int
	Capacity      int
	MaxLen        int
	TotalReceived int64
	TotalSent     int64
	Rejected      int64
	ResizeCount   int
}

// popLocked removes the head item. Must be called with lock held and count > 0.
func (q *Growable[T]) popLocked() T {
	item := q.buf[q.head]
	var zero T
	q.buf[q.head] = zero // release reference for GC
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalSent++
	return item
}

// grow doubles the ring capacity. Must be called with lock held.
func (q *Growable[T]) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]T, newCapacity)

	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}

	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
	q.resizeCount++
}
