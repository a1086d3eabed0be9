package mqtt

import "github.com/sirupsen/logrus"

// DefaultBufferSize is the number of messages held while disconnected.
const DefaultBufferSize = 500

// pending is a serialized message waiting for the broker.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the newest messages published while offline, in order.
// Not safe for concurrent use; RealPublisher holds its mutex around it.
type ringBuffer struct {
	items   []pending
	head    int // next write position
	count   int
	dropped int // overwritten since the last drain
	log     logrus.FieldLogger
}

func newRingBuffer(capacity int, log logrus.FieldLogger) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{items: make([]pending, capacity), log: log}
}

func (r *ringBuffer) push(msg pending) {
	capacity := len(r.items)
	r.items[r.head] = msg
	r.head = (r.head + 1) % capacity
	if r.count < capacity {
		r.count++
		return
	}
	// Full: the write above replaced the oldest entry.
	if r.dropped == 0 && r.log != nil {
		r.log.WithField("capacity", capacity).Warn("offline buffer full, dropping oldest messages")
	}
	r.dropped++
}

// drain returns the buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drain() ([]pending, int) {
	if r.count == 0 {
		return nil, 0
	}
	capacity := len(r.items)
	out := make([]pending, r.count)
	start := (r.head - r.count + capacity) % capacity
	for i := range out {
		out[i] = r.items[(start+i)%capacity]
	}
	dropped := r.dropped
	r.count, r.head, r.dropped = 0, 0, 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
