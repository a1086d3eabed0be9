package logic

// DefaultHistoryLength is the number of samples kept for charting.
const DefaultHistoryLength = 60

// History is a fixed-capacity FIFO of recent samples.
// When full, pushing overwrites the oldest sample.
// Not safe for concurrent use; the caller must synchronize.
type History struct {
	buf      []Sample
	capacity int
	head     int // next write position
	count    int
}

// NewHistory creates a History holding at most capacity samples.
// A non-positive capacity falls back to DefaultHistoryLength.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryLength
	}
	return &History{
		buf:      make([]Sample, capacity),
		capacity: capacity,
	}
}

// Push appends a sample, evicting the oldest one if the buffer is full.
func (h *History) Push(s Sample) {
	h.buf[h.head] = s
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}
}

// Samples returns a copy of the retained samples, oldest first.
func (h *History) Samples() []Sample {
	result := make([]Sample, h.count)
	// Oldest item is at (head - count) mod capacity
	start := (h.head - h.count + h.capacity) % h.capacity
	for i := 0; i < h.count; i++ {
		result[i] = h.buf[(start+i)%h.capacity]
	}
	return result
}

// Len returns the number of retained samples.
func (h *History) Len() int {
	return h.count
}

// Cap returns the maximum number of retained samples.
func (h *History) Cap() int {
	return h.capacity
}
