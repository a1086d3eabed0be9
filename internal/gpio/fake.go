package gpio

import (
	"sync"
	"time"
)

// FakeIndicator records pulses for test assertions.
type FakeIndicator struct {
	mu     sync.Mutex
	pulses []time.Duration
	closed bool

	// PulseError, if set, will be returned by Pulse.
	PulseError error
}

// NewFakeIndicator creates a FakeIndicator.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Pulse records d.
func (f *FakeIndicator) Pulse(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PulseError != nil {
		return f.PulseError
	}
	f.pulses = append(f.pulses, d)
	return nil
}

// Pulses returns the recorded pulse durations in order.
func (f *FakeIndicator) Pulses() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.pulses...)
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakeIndicator) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
