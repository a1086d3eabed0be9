package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/autoclave-monitor/internal/assistant"
	"github.com/sweeney/autoclave-monitor/internal/gpio"
	"github.com/sweeney/autoclave-monitor/internal/logic"
	"github.com/sweeney/autoclave-monitor/internal/metrics"
	"github.com/sweeney/autoclave-monitor/internal/monitor"
	"github.com/sweeney/autoclave-monitor/internal/mqtt"
	"github.com/sweeney/autoclave-monitor/internal/source"
	"github.com/sweeney/autoclave-monitor/internal/status"
	"github.com/sweeney/autoclave-monitor/internal/web"
)

type manualTicker struct {
	ch chan time.Time
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

// tickers hands out manual tickers and remembers the latest.
type tickers struct {
	mu     sync.Mutex
	latest *manualTicker
}

func (t *tickers) New(time.Duration) monitor.Ticker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = &manualTicker{ch: make(chan time.Time)}
	return t.latest
}

func (t *tickers) tick(at time.Time) {
	t.mu.Lock()
	tk := t.latest
	t.mu.Unlock()
	tk.ch <- at
}

type system struct {
	tracker   *status.Tracker
	publisher *mqtt.FakePublisher
	indicator *gpio.FakeIndicator
	model     *assistant.FakeModel
	tickers   *tickers
	session   *monitor.Session
	api       *httptest.Server
}

// newSystem wires the session, publishers and dashboard the way the daemon
// does, with fakes at the edges.
func newSystem(t *testing.T, live source.Source) *system {
	t.Helper()
	logger, _ := test.NewNullLogger()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	sys := &system{
		tracker:   status.NewTracker(start, status.Config{TickMs: 2000, TargetKillPoints: 50}),
		publisher: mqtt.NewFakePublisher(),
		indicator: gpio.NewFakeIndicator(),
		model:     &assistant.FakeModel{Reply: "Cycle looks nominal."},
		tickers:   &tickers{},
	}
	collectors := metrics.New()
	sim := source.NewSimSource(logic.NewSimulator(logic.DefaultSimulatorConfig(), rand.New(rand.NewSource(1))))
	asst := assistant.New(sys.model, logger)

	var ids int
	session, err := monitor.New(monitor.Config{
		TickPeriod:    2 * time.Second,
		Target:        50,
		HistoryLength: 60,
		InitialSource: source.KindLive,
		StartRunning:  true,
	}, monitor.Deps{
		Live:      live,
		Sim:       sim,
		Status:    sys.tracker,
		Insighter: asst,
		Notifiers: []monitor.Notifier{
			monitor.LogNotifier{Log: logger},
			monitor.PulseNotifier{Indicator: sys.indicator, Duration: time.Second, Log: logger},
		},
		Sinks:     []monitor.CycleSink{sys.publisher},
		Observers: []monitor.TickObserver{mqtt.TelemetryObserver{Publisher: sys.publisher}},
		Metrics:   collectors,
		Logger:    logger,
		Now:       func() time.Time { return start.Add(time.Minute) },
		NewTicker: sys.tickers.New,
		NewID: func() string {
			ids++
			return fmt.Sprintf("cycle-%d", ids)
		},
	})
	require.NoError(t, err)
	sys.session = session

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		session.Run(ctx)
	}()

	srv := web.New(":0", web.Options{
		Tracker:   sys.tracker,
		Control:   session,
		Assistant: asst,
		Metrics:   collectors,
		Logger:    logger,
	})
	sys.api = httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		sys.api.Close()
		srv.Shutdown(context.Background())
		cancel()
		<-done
	})

	require.Eventually(t, func() bool { return sys.tracker.Snapshot().Running }, 2*time.Second, 5*time.Millisecond)
	return sys
}

func (s *system) runTicks(t *testing.T, n int) {
	t.Helper()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	before := s.tracker.Snapshot().Ticks
	for i := 0; i < n; i++ {
		at = at.Add(2 * time.Second)
		s.tickers.tick(at)
	}
	require.Eventually(t, func() bool { return s.tracker.Snapshot().Ticks == before+uint64(n) },
		2*time.Second, 5*time.Millisecond)
}

func (s *system) getJSON(t *testing.T, path string, v any) {
	t.Helper()
	resp, err := http.Get(s.api.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (s *system) control(t *testing.T, cmd string) {
	t.Helper()
	resp, err := http.Post(s.api.URL+"/api/control", "application/json", strings.NewReader(`{"command":"`+cmd+`"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

// TestIntegrationLiveCycle feeds a heat-up through the live source and checks
// every output channel sees the completed cycle.
func TestIntegrationLiveCycle(t *testing.T) {
	// 20, 20, 60 (cycle opens), then 140 °C: 10 kill points per 2 s tick,
	// so the 50-point target completes on the fifth hot tick.
	live := source.NewFakeSource(source.KindLive,
		source.Reading{Temperature: 20, Pressure: 100},
		source.Reading{Temperature: 20, Pressure: 100},
		source.Reading{Temperature: 60, Pressure: 120},
		source.Reading{Temperature: 140, Pressure: 210},
	)
	sys := newSystem(t, live)

	sys.runTicks(t, 7)
	snap := sys.tracker.Snapshot()
	assert.Empty(t, snap.Cycles, "cycle should still be open after 4 hot ticks")
	assert.True(t, snap.Cycle.Open)
	assert.InDelta(t, 80, snap.KillPercentage, 0.001)

	sys.runTicks(t, 1)

	cycles := sys.publisher.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, "cycle-1", cycles[0].ID)
	assert.Equal(t, logic.StatusCompleted, cycles[0].Status)
	assert.Equal(t, 140.0, cycles[0].MaxTemp)
	assert.Equal(t, 120.0, cycles[0].MinPressure)

	assert.Equal(t, []time.Duration{time.Second}, sys.indicator.Pulses())
	// Telemetry is published after the tracker update the tick wait observes.
	require.Eventually(t, func() bool { return len(sys.publisher.Telemetry()) == 8 }, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return sys.tracker.Snapshot().Insight == "Cycle looks nominal." },
		2*time.Second, 5*time.Millisecond)

	var apiCycles []status.CycleJSON
	sys.getJSON(t, "/api/cycles", &apiCycles)
	require.Len(t, apiCycles, 1)
	assert.Equal(t, "COMPLETED", apiCycles[0].Status)
	assert.Equal(t, 100.0, apiCycles[0].KillPercentage)

	var st status.StatusJSON
	sys.getJSON(t, "/api/status", &st)
	assert.Equal(t, "live", st.Status.Source)
	assert.Equal(t, uint64(8), st.Status.Ticks)
	assert.Equal(t, 1, st.Status.CyclesTotal)

	resp, err := http.Post(sys.api.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"How did the last cycle go?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, "Cycle looks nominal.", reply.Content)

	calls := sys.model.Calls()
	require.Len(t, calls, 2, "one insight and one chat call")
	assert.Equal(t, "How did the last cycle go?", calls[1].Prompt)
}

// TestIntegrationControlAbort opens a cycle, aborts it over HTTP and then
// switches to the simulation.
func TestIntegrationControlAbort(t *testing.T) {
	live := source.NewFakeSource(source.KindLive,
		source.Reading{Temperature: 20, Pressure: 100},
		source.Reading{Temperature: 90, Pressure: 150},
	)
	sys := newSystem(t, live)

	sys.runTicks(t, 2)
	require.True(t, sys.tracker.Snapshot().Cycle.Open)

	sys.control(t, "abort")
	require.Eventually(t, func() bool { return len(sys.publisher.Cycles()) == 1 }, 2*time.Second, 5*time.Millisecond)
	aborted := sys.publisher.Cycles()[0]
	assert.Equal(t, logic.StatusAborted, aborted.Status)
	require.Eventually(t, func() bool { return len(sys.indicator.Pulses()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []time.Duration{3 * time.Second}, sys.indicator.Pulses())

	sys.control(t, "toggle")
	require.Eventually(t, func() bool { return sys.tracker.Snapshot().Source == "simulation" },
		2*time.Second, 5*time.Millisecond)

	sys.runTicks(t, 3)
	snap := sys.tracker.Snapshot()
	assert.Equal(t, logic.PhaseHeating, snap.Phase)
	assert.Greater(t, snap.Current.Temperature, 20.0)

	sys.control(t, "stop")
	require.Eventually(t, func() bool { return !sys.tracker.Snapshot().Running }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "STOPPED", sys.tracker.Snapshot().StatusText())
}
