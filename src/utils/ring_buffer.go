package utils

import (
	"sync"

	"alert-relay/src/models"
)

// -----------------------------------------------------------------------------
// AlertRing is a fixed-size circular buffer of emitted alerts.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

// AlertRing is appended to from the fan-out path and read from the REST
// surface, so it carries its own lock.
type AlertRing struct {
	mu       sync.Mutex
	data     []models.MAlertEvent
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewAlertRing creates a new buffer with fixed capacity
func NewAlertRing(capacity int) *AlertRing {
	if capacity <= 0 {
		capacity = DefaultRecentBufferSize
	}

	return &AlertRing{
		data:     make([]models.MAlertEvent, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds one alert, overwriting the oldest entry when full.
func (rb *AlertRing) Append(event models.MAlertEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.index] = event
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// Latest returns up to n most recent alerts, newest last.
func (rb *AlertRing) Latest(n int) []models.MAlertEvent {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 || n <= 0 {
		return []models.MAlertEvent{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MAlertEvent, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *AlertRing) Size() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *AlertRing) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *AlertRing) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.index = 0
	rb.size = 0
}
