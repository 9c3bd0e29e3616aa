package window

import (
	"sync"

	"github.com/tunogya/footprint/pkg/model"
)

// RingBuffer is a circular buffer of bars with fixed capacity
type RingBuffer struct {
	data     []model.Bar
	capacity int
	size     int
	head     int // next write position
	mu       sync.RWMutex
}

// NewRingBuffer creates a new ring buffer with the specified capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{
		data:     make([]model.Bar, capacity),
		capacity: capacity,
	}
}

// Push adds a bar, overwriting the oldest when full
func (rb *RingBuffer) Push(b model.Bar) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.push(b)
}

func (rb *RingBuffer) push(b model.Bar) {
	rb.data[rb.head] = b
	rb.head = (rb.head + 1) % rb.capacity
	if rb.size < rb.capacity {
		rb.size++
	}
}

// Size returns the current number of bars
func (rb *RingBuffer) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// IsFull returns true if the buffer is at capacity
func (rb *RingBuffer) IsFull() bool {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size == rb.capacity
}

// Capacity returns the maximum capacity of the buffer
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// ToSlice returns a copy of the bars in chronological order
func (rb *RingBuffer) ToSlice() []model.Bar {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.slice()
}

func (rb *RingBuffer) slice() []model.Bar {
	result := make([]model.Bar, rb.size)
	start := 0
	if rb.size == rb.capacity {
		start = rb.head
	}
	for i := 0; i < rb.size; i++ {
		result[i] = rb.data[(start+i)%rb.capacity]
	}
	return result
}

// Last returns the most recent bar
func (rb *RingBuffer) Last() (model.Bar, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return model.Bar{}, false
	}
	return rb.data[(rb.head-1+rb.capacity)%rb.capacity], true
}

// Clear empties the buffer
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.size = 0
	rb.head = 0
}

// Append pushes b if it is newer than the last buffered bar. A bar dated
// the same day as the last one replaces it. Older bars are rejected. The
// buffer contents after the change are returned.
func (rb *RingBuffer) Append(b model.Bar) ([]model.Bar, bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size > 0 {
		lastIdx := (rb.head - 1 + rb.capacity) % rb.capacity
		last := rb.data[lastIdx]
		if b.Date.Equal(last.Date) {
			rb.data[lastIdx] = b
			return rb.slice(), true
		}
		if b.Date.Before(last.Date) {
			return nil, false
		}
	}
	rb.push(b)
	return rb.slice(), true
}
