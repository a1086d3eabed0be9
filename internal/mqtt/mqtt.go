// Package mqtt publishes cycle records, telemetry and lifecycle events to an
// MQTT broker, with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/autoclave-monitor/internal/logic"
	"github.com/sweeney/autoclave-monitor/internal/status"
)

// Topic layout under the sterilizer prefix.
const (
	TopicPrefix    = "autoclave/sterilizer"
	TopicCycles    = TopicPrefix + "/cycles"
	TopicTelemetry = TopicPrefix + "/telemetry"
	TopicSystem    = TopicPrefix + "/system"
)

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
	EventOffline     = "OFFLINE"
)

// Publisher publishes monitor output to MQTT.
type Publisher interface {
	// PublishCycle sends a finalized cycle record.
	// Returns error if publishing fails (should not crash the process).
	PublishCycle(c logic.Cycle) error

	// PublishTelemetry sends the per-tick reading.
	PublishTelemetry(t Telemetry) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Telemetry is one tick's reading.
type Telemetry struct {
	Timestamp      time.Time
	Source         string
	Temperature    float64
	Pressure       float64
	KillPercentage float64
	Phase          logic.Phase
	CycleOpen      bool
}

// TelemetryFromUpdate converts the state written at the end of a tick.
func TelemetryFromUpdate(u status.Update) Telemetry {
	return Telemetry{
		Timestamp:      u.Time,
		Source:         u.Source,
		Temperature:    u.Current.Temperature,
		Pressure:       u.Current.Pressure,
		KillPercentage: u.KillPercentage,
		Phase:          u.Phase,
		CycleOpen:      u.Cycle.Open,
	}
}

// CyclePayload is the message published on TopicCycles.
type CyclePayload struct {
	Cycle status.CycleJSON `json:"cycle"`
}

// FormatCyclePayload creates the JSON payload for a cycle record.
func FormatCyclePayload(c logic.Cycle) ([]byte, error) {
	return json.Marshal(CyclePayload{Cycle: status.FormatCycle(c)})
}

// TelemetryPayload is the message published on TopicTelemetry.
type TelemetryPayload struct {
	Telemetry TelemetryInner `json:"telemetry"`
}

// TelemetryInner contains the reading details.
type TelemetryInner struct {
	Timestamp      string  `json:"timestamp"`
	Source         string  `json:"source"`
	Temperature    float64 `json:"temperature"`
	Pressure       float64 `json:"pressure"`
	KillPercentage float64 `json:"kill_percentage"`
	Phase          string  `json:"phase,omitempty"`
	CycleOpen      bool    `json:"cycle_open"`
}

// FormatTelemetryPayload creates the JSON payload for a telemetry reading.
func FormatTelemetryPayload(t Telemetry) ([]byte, error) {
	payload := TelemetryPayload{
		Telemetry: TelemetryInner{
			Timestamp:      t.Timestamp.UTC().Format(time.RFC3339),
			Source:         t.Source,
			Temperature:    t.Temperature,
			Pressure:       t.Pressure,
			KillPercentage: t.KillPercentage,
			Phase:          string(t.Phase),
			CycleOpen:      t.CycleOpen,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// TelemetryObserver publishes every tick's reading. It satisfies the
// monitor's tick observer interface.
type TelemetryObserver struct {
	Publisher Publisher
	// OnError is called with publish failures; nil ignores them.
	OnError func(error)
}

// ObserveTick publishes u as telemetry.
func (o TelemetryObserver) ObserveTick(u status.Update) {
	if err := o.Publisher.PublishTelemetry(TelemetryFromUpdate(u)); err != nil && o.OnError != nil {
		o.OnError(err)
	}
}
