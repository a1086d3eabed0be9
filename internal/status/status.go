// Package status provides a thread-safe status store for the autoclave monitor.
// It is written by the monitor loop and read by HTTP, websocket and MQTT consumers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs           int64
	TargetKillPoints float64
	HistoryLength    int
	MaxCycles        int
	HeartbeatMs      int64
	Broker           string
	HTTPAddr         string
	FeedURL          string
}

// Reading is the latest sample shown on the dashboard.
type Reading struct {
	Temperature float64
	Pressure    float64
}

// Update is the per-tick state written by the monitor loop.
type Update struct {
	Time           time.Time
	Current        Reading
	KillPercentage float64
	KillPoints     float64
	Phase          logic.Phase // empty for the live feed
	Cycle          logic.Accumulator
	Source         string
	History        []logic.Sample
	FetchError     string // empty when the tick's fetch succeeded
}

// Snapshot is a point-in-time view of monitor state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Current        Reading
	KillPercentage float64
	KillPoints     float64
	Phase          logic.Phase
	Cycle          logic.Accumulator
	Analysis       string
	Insight        string
	Source         string
	Running        bool
	History        []logic.Sample
	Cycles         []logic.Cycle
	Ticks          uint64
	FetchErrors    uint64
	LastFetchError string
	LastTick       time.Time
	StartTime      time.Time
	Now            time.Time
	MQTTConnected  bool
	Config         Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// StatusText is the short state label shown next to the gauges.
func (s Snapshot) StatusText() string {
	switch {
	case !s.Running:
		return "STOPPED"
	case s.Phase != "":
		return string(s.Phase)
	case s.Cycle.Open:
		return "CYCLE RUNNING"
	default:
		return "IDLE"
	}
}

// InitialInsight is shown until the first cycle completes.
const InitialInsight = "System Ready. Waiting for cycle data..."

// Tracker holds mutable monitor state behind an RWMutex.
type Tracker struct {
	mu        sync.RWMutex
	snap      Snapshot
	listeners map[chan struct{}]struct{}
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Current:   Reading{Temperature: 20, Pressure: 100},
			Analysis:  logic.Analyze(20, 100, 0),
			Insight:   InitialInsight,
			StartTime: startTime,
			Config:    cfg,
		},
		listeners: make(map[chan struct{}]struct{}),
	}
}

// Update records a tick. Called from the monitor loop on every tick.
func (t *Tracker) Update(u Update) {
	t.mu.Lock()
	t.snap.Current = u.Current
	t.snap.KillPercentage = u.KillPercentage
	t.snap.KillPoints = u.KillPoints
	t.snap.Phase = u.Phase
	t.snap.Cycle = u.Cycle
	t.snap.Source = u.Source
	t.snap.History = u.History
	t.snap.Analysis = logic.Analyze(u.Current.Temperature, u.Current.Pressure, u.KillPercentage)
	t.snap.LastTick = u.Time
	t.snap.Ticks++
	if u.FetchError != "" {
		t.snap.FetchErrors++
		t.snap.LastFetchError = u.FetchError
	}
	t.mu.Unlock()
	t.notify()
}

// SetCycles replaces the finalized cycle list. The slice must not be
// modified by the caller afterwards.
func (t *Tracker) SetCycles(cycles []logic.Cycle) {
	t.mu.Lock()
	t.snap.Cycles = cycles
	t.mu.Unlock()
	t.notify()
}

// SetInsight sets the latest cycle insight text.
func (t *Tracker) SetInsight(text string) {
	t.mu.Lock()
	t.snap.Insight = text
	t.mu.Unlock()
	t.notify()
}

// SetRunning records whether the tick loop is active, and the active source.
func (t *Tracker) SetRunning(running bool, source string) {
	t.mu.Lock()
	t.snap.Running = running
	t.snap.Source = source
	t.mu.Unlock()
	t.notify()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the monitor state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

// Subscribe returns a channel that receives a value whenever the state
// changes. Notifications coalesce; a slow reader sees at most one pending
// signal. Call the returned func to unsubscribe.
func (t *Tracker) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	t.mu.Lock()
	t.listeners[ch] = struct{}{}
	t.mu.Unlock()
	return ch, func() {
		t.mu.Lock()
		delete(t.listeners, ch)
		t.mu.Unlock()
	}
}

func (t *Tracker) notify() {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for ch := range t.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
