package mqtt

import (
	"sync"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// FakePublisher records published messages for test assertions.
// It is safe for concurrent use; read recorded values through the accessors.
type FakePublisher struct {
	mu sync.Mutex

	cycles       []logic.Cycle
	telemetry    []Telemetry
	systemEvents []SystemEvent
	payloads     map[string][][]byte

	// PublishError, if set, will be returned by PublishCycle and PublishTelemetry.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	closed    bool
	connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{payloads: make(map[string][][]byte)}
}

// PublishCycle records the cycle.
func (f *FakePublisher) PublishCycle(c logic.Cycle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatCyclePayload(c)
	if err != nil {
		return err
	}
	f.cycles = append(f.cycles, c)
	f.payloads[TopicCycles] = append(f.payloads[TopicCycles], payload)
	return nil
}

// PublishTelemetry records the reading.
func (f *FakePublisher) PublishTelemetry(t Telemetry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatTelemetryPayload(t)
	if err != nil {
		return err
	}
	f.telemetry = append(f.telemetry, t)
	f.payloads[TopicTelemetry] = append(f.payloads[TopicTelemetry], payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.systemEvents = append(f.systemEvents, event)
	f.payloads[TopicSystem] = append(f.payloads[TopicSystem], payload)
	return nil
}

// Cycles returns the recorded cycles.
func (f *FakePublisher) Cycles() []logic.Cycle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.Cycle(nil), f.cycles...)
}

// Telemetry returns the recorded readings.
func (f *FakePublisher) Telemetry() []Telemetry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Telemetry(nil), f.telemetry...)
}

// SystemEvents returns the recorded system events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// Payloads returns the JSON payloads published on topic.
func (f *FakePublisher) Payloads(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads[topic]...)
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SetConnected controls the return value of IsConnected.
func (f *FakePublisher) SetConnected(c bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = c
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Name identifies the publisher in logs and metrics.
func (f *FakePublisher) Name() string { return "mqtt" }

// Reset clears recorded messages and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cycles = nil
	f.telemetry = nil
	f.systemEvents = nil
	f.payloads = make(map[string][][]byte)
	f.closed = false
	f.connected = false
	f.PublishError = nil
	f.PublishSystemError = nil
}
