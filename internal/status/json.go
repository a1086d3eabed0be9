package status

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	State          string       `json:"state"`
	Source         string       `json:"source"`
	Running        bool         `json:"running"`
	Temperature    float64      `json:"temperature"`
	Pressure       float64      `json:"pressure"`
	KillPercentage float64      `json:"kill_percentage"`
	Phase          string       `json:"phase,omitempty"`
	Cycle          CycleState   `json:"cycle"`
	Analysis       string       `json:"analysis"`
	Insight        string       `json:"insight"`
	Ticks          uint64       `json:"ticks"`
	FetchErrors    uint64       `json:"fetch_errors"`
	LastFetchError string       `json:"last_fetch_error,omitempty"`
	CyclesTotal    int          `json:"cycles_total"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Config         ConfigJSON   `json:"config"`
	History        []SampleJSON `json:"history,omitempty"`
	Cycles         []CycleJSON  `json:"cycles,omitempty"`
}

// CycleState is the JSON representation of the in-progress cycle.
type CycleState struct {
	Open           bool    `json:"open"`
	StartTime      string  `json:"start_time,omitempty"`
	KillPoints     float64 `json:"kill_points"`
	MaxTemperature float64 `json:"max_temperature,omitempty"`
	MinPressure    float64 `json:"min_pressure,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs           int64   `json:"tick_ms"`
	TargetKillPoints float64 `json:"target_kill_points"`
	HistoryLength    int     `json:"history_length"`
	MaxCycles        int     `json:"max_cycles"`
	HeartbeatMs      int64   `json:"heartbeat_ms"`
	Broker           string  `json:"broker"`
	HTTPAddr         string  `json:"http_addr"`
	FeedURL          string  `json:"feed_url,omitempty"`
}

// SampleJSON is one chart point.
type SampleJSON struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature"`
	Pressure    float64 `json:"pressure"`
}

// CycleJSON is the JSON representation of a finalized cycle.
type CycleJSON struct {
	ID              string  `json:"id"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	DurationSeconds float64 `json:"durationSeconds"`
	MaxTemp         float64 `json:"maxTemp"`
	MinPressure     float64 `json:"minPressure"`
	Status          string  `json:"status"`
	KillPercentage  float64 `json:"killPercentage"`
}

// round1 rounds to one decimal place for display.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatCycle converts a cycle to its JSON form.
func FormatCycle(c logic.Cycle) CycleJSON {
	return CycleJSON{
		ID:              c.ID,
		StartTime:       c.StartTime.UTC().Format(time.RFC3339),
		EndTime:         c.EndTime.UTC().Format(time.RFC3339),
		DurationSeconds: c.Duration().Seconds(),
		MaxTemp:         round1(c.MaxTemp),
		MinPressure:     round1(c.MinPressure),
		Status:          string(c.Status),
		KillPercentage:  round1(c.KillPercentage),
	}
}

// FormatCycles converts cycles, preserving order.
func FormatCycles(cycles []logic.Cycle) []CycleJSON {
	out := make([]CycleJSON, len(cycles))
	for i, c := range cycles {
		out[i] = FormatCycle(c)
	}
	return out
}

// FormatHistory converts chart samples, preserving order.
func FormatHistory(samples []logic.Sample) []SampleJSON {
	out := make([]SampleJSON, len(samples))
	for i, s := range samples {
		out[i] = SampleJSON{
			Time:        s.Time.UTC().Format(time.RFC3339),
			Temperature: round1(s.Temperature),
			Pressure:    round1(s.Pressure),
		}
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:          snap.StatusText(),
		Source:         snap.Source,
		Running:        snap.Running,
		Temperature:    round1(snap.Current.Temperature),
		Pressure:       round1(snap.Current.Pressure),
		KillPercentage: round1(snap.KillPercentage),
		Phase:          string(snap.Phase),
		Cycle: CycleState{
			Open:       snap.Cycle.Open,
			KillPoints: snap.KillPoints,
		},
		Analysis:       snap.Analysis,
		Insight:        snap.Insight,
		Ticks:          snap.Ticks,
		FetchErrors:    snap.FetchErrors,
		LastFetchError: snap.LastFetchError,
		CyclesTotal:    len(snap.Cycles),
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		MQTT:           MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			TickMs:           snap.Config.TickMs,
			TargetKillPoints: snap.Config.TargetKillPoints,
			HistoryLength:    snap.Config.HistoryLength,
			MaxCycles:        snap.Config.MaxCycles,
			HeartbeatMs:      snap.Config.HeartbeatMs,
			Broker:           snap.Config.Broker,
			HTTPAddr:         snap.Config.HTTPAddr,
			FeedURL:          snap.Config.FeedURL,
		},
	}
	if snap.Cycle.Open {
		inner.Cycle.StartTime = snap.Cycle.StartTime.UTC().Format(time.RFC3339)
		inner.Cycle.MaxTemperature = round1(snap.Cycle.MaxTemperature)
		inner.Cycle.MinPressure = round1(snap.Cycle.MinPressure)
	}
	return inner
}

// FormatJSON returns the full JSON status for the web endpoint, including
// chart history and the cycle list.
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	inner.History = FormatHistory(snap.History)
	inner.Cycles = FormatCycles(snap.Cycles)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatLive returns the compact JSON pushed to websocket clients each tick.
func FormatLive(snap Snapshot) []byte {
	inner := buildInner(snap)
	inner.History = FormatHistory(snap.History)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
