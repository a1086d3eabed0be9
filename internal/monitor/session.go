// Package monitor runs the single tick loop that polls the active sample
// source, feeds the cycle tracker and fans out completed cycles.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/autoclave-monitor/internal/logic"
	"github.com/sweeney/autoclave-monitor/internal/metrics"
	"github.com/sweeney/autoclave-monitor/internal/source"
	"github.com/sweeney/autoclave-monitor/internal/status"
)

// Command is a control request from the display surface.
type Command string

const (
	CommandStart  Command = "start"  // resume ticking on the simulation
	CommandStop   Command = "stop"   // cancel the ticker
	CommandToggle Command = "toggle" // swap live feed and simulation
	CommandAbort  Command = "abort"  // close the open cycle as ABORTED
)

// ErrUnknownCommand is returned by ParseCommand.
var ErrUnknownCommand = errors.New("unknown command")

// ErrBusy is returned by Submit when the command queue is full.
var ErrBusy = errors.New("command queue full")

// ParseCommand converts a request string to a Command.
func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case CommandStart, CommandStop, CommandToggle, CommandAbort:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Insighter produces the insight text shown after a cycle completes.
// It may block; the session calls it off the tick loop.
type Insighter interface {
	Insight(ctx context.Context, cycles []logic.Cycle) string
}

// CycleSink receives every finalized cycle record.
type CycleSink interface {
	PublishCycle(c logic.Cycle) error
}

// TickObserver sees the state written at the end of each tick.
type TickObserver interface {
	ObserveTick(u status.Update)
}

// Ticker is the subset of *time.Ticker the session uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// Config holds the session settings.
type Config struct {
	TickPeriod    time.Duration
	Target        float64
	HistoryLength int
	// MaxCycles caps the in-memory cycle list; 0 keeps every record.
	MaxCycles     int
	InitialSource source.Kind
	StartRunning  bool
	// FetchTimeout bounds a single source read; 0 uses the tick period.
	FetchTimeout time.Duration
}

// Deps are the collaborators wired into a Session.
type Deps struct {
	Live      source.Source
	Sim       source.Source
	Status    *status.Tracker
	Insighter Insighter // nil leaves the insight text unchanged
	Notifiers []Notifier
	Sinks     []CycleSink
	Observers []TickObserver
	Metrics   *metrics.Collectors // nil-safe
	Logger    logrus.FieldLogger
	Now       func() time.Time
	NewTicker func(time.Duration) Ticker
	NewID     func() string // cycle ID generator, uuid by default
}

// Session owns the cycle tracker and all per-tick state. Everything except
// Submit runs on the goroutine that called Run.
type Session struct {
	cfg  Config
	deps Deps
	log  logrus.FieldLogger

	tracker *logic.Tracker
	cmds    chan Command
	insight chan string

	active  source.Source
	running bool
	last    source.Reading
	cycles  []logic.Cycle
}

// New validates cfg and deps and returns an idle Session.
func New(cfg Config, deps Deps) (*Session, error) {
	if cfg.TickPeriod <= 0 {
		return nil, fmt.Errorf("tick period must be positive, got %v", cfg.TickPeriod)
	}
	if deps.Live == nil || deps.Sim == nil {
		return nil, errors.New("both live and simulation sources are required")
	}
	if deps.Status == nil {
		return nil, errors.New("status tracker is required")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewTicker == nil {
		deps.NewTicker = NewRealTicker
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = cfg.TickPeriod
	}

	s := &Session{
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger.WithField("component", "monitor"),
		tracker: logic.NewTracker(
			logic.WithTarget(cfg.Target),
			logic.WithHistoryLength(cfg.HistoryLength),
			logic.WithIDFunc(deps.NewID),
		),
		cmds:    make(chan Command, 8),
		insight: make(chan string, 1),
		active:  deps.Live,
		running: cfg.StartRunning,
		last:    source.Reading{Temperature: 20, Pressure: 100},
	}
	if cfg.InitialSource == source.KindSimulation {
		s.active = deps.Sim
	}
	return s, nil
}

// Submit queues a command for the loop. It never blocks.
func (s *Session) Submit(cmd Command) error {
	select {
	case s.cmds <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

// Run drives the session until ctx is cancelled. Ticks are handled one at a
// time; a slow source read delays the next tick rather than overlapping it.
func (s *Session) Run(ctx context.Context) error {
	var ticker Ticker
	var tickC <-chan time.Time
	startTicker := func() {
		if ticker == nil {
			ticker = s.deps.NewTicker(s.cfg.TickPeriod)
			tickC = ticker.C()
		}
	}
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickC = nil
		}
	}
	defer stopTicker()

	if s.running {
		startTicker()
	}
	s.deps.Status.SetRunning(s.running, string(s.active.Kind()))
	s.log.WithFields(logrus.Fields{
		"tick":    s.cfg.TickPeriod,
		"target":  s.tracker.Target(),
		"source":  s.active.Kind(),
		"running": s.running,
	}).Info("monitor started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("monitor stopped")
			return nil

		case cmd := <-s.cmds:
			s.handle(cmd)
			if s.running {
				startTicker()
			} else {
				stopTicker()
			}

		case text := <-s.insight:
			s.deps.Status.SetInsight(text)

		case t := <-tickC:
			s.tick(ctx, t)
		}
	}
}

func (s *Session) handle(cmd Command) {
	now := s.deps.Now()
	switch cmd {
	case CommandStart:
		s.running = true
		s.active = s.deps.Sim
		s.emit(Event{Type: EventStarted, Time: now, Source: s.active.Kind()})
	case CommandStop:
		s.running = false
		s.emit(Event{Type: EventStopped, Time: now, Source: s.active.Kind()})
	case CommandToggle:
		if s.active == s.deps.Live {
			s.active = s.deps.Sim
		} else {
			s.active = s.deps.Live
		}
		s.emit(Event{Type: EventSourceChanged, Time: now, Source: s.active.Kind()})
	case CommandAbort:
		c, ok := s.tracker.Abort(now)
		if !ok {
			s.log.Info("abort requested with no open cycle")
			break
		}
		s.record(c)
		if obs, ok := s.active.(source.CycleObserver); ok {
			obs.CycleCompleted(c)
		}
		s.emit(Event{Type: EventCycleAborted, Time: now, Source: s.active.Kind(), Cycle: &c})
	default:
		s.log.WithField("command", cmd).Warn("ignoring unknown command")
		return
	}
	s.log.WithFields(logrus.Fields{"command": cmd, "source": s.active.Kind(), "running": s.running}).Info("command applied")
	s.deps.Status.SetRunning(s.running, string(s.active.Kind()))
}

func (s *Session) tick(ctx context.Context, t time.Time) {
	src := s.active
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	reading, err := src.Read(fetchCtx, s.last)
	cancel()

	fetchErr := ""
	if err != nil {
		fetchErr = err.Error()
		s.deps.Metrics.FetchError(string(src.Kind()))
		s.log.WithFields(logrus.Fields{"source": src.Kind(), "error": err}).Warn("sample fetch failed, keeping previous reading")
		reading = s.fallback(src)
	}
	s.last = reading

	if reading.Rearmed {
		s.log.Debug("simulator rearmed, discarding cool-down accumulator")
		s.tracker.Discard()
	}

	res := s.tracker.Process(logic.Input{
		Temperature: reading.Temperature,
		Pressure:    reading.Pressure,
		Elapsed:     s.cfg.TickPeriod,
		Time:        t,
	})

	if res.Completed != nil {
		c := *res.Completed
		s.record(c)
		if obs, ok := src.(source.CycleObserver); ok {
			obs.CycleCompleted(c)
		}
		s.emit(Event{Type: EventCycleCompleted, Time: t, Source: src.Kind(), Cycle: &c})
		s.requestInsight(ctx)
	}

	u := status.Update{
		Time:           t,
		Current:        status.Reading{Temperature: reading.Temperature, Pressure: reading.Pressure},
		KillPercentage: res.KillPercentage,
		KillPoints:     res.KillPoints,
		Phase:          reading.Phase,
		Cycle:          s.tracker.State(),
		Source:         string(src.Kind()),
		History:        s.tracker.History(),
		FetchError:     fetchErr,
	}
	s.deps.Status.Update(u)
	s.deps.Metrics.ObserveTick(string(src.Kind()), reading.Temperature, reading.Pressure, res.KillPercentage)
	for _, o := range s.deps.Observers {
		o.ObserveTick(u)
	}
}

// fallback repeats the last temperature and pressure. Rearmed is a one-tick
// signal and is never repeated; the phase is kept only while the simulation
// is active.
func (s *Session) fallback(src source.Source) source.Reading {
	r := source.Reading{Temperature: s.last.Temperature, Pressure: s.last.Pressure}
	if src.Kind() == source.KindSimulation {
		r.Phase = s.last.Phase
	}
	return r
}

// record appends c to the cycle list and hands it to every sink.
func (s *Session) record(c logic.Cycle) {
	s.cycles = append(s.cycles, c)
	if s.cfg.MaxCycles > 0 && len(s.cycles) > s.cfg.MaxCycles {
		s.cycles = append([]logic.Cycle(nil), s.cycles[len(s.cycles)-s.cfg.MaxCycles:]...)
	}
	s.deps.Status.SetCycles(append([]logic.Cycle(nil), s.cycles...))
	s.deps.Metrics.ObserveCycle(string(c.Status), c.Duration())

	s.log.WithFields(logrus.Fields{
		"id":       c.ID,
		"status":   c.Status,
		"duration": c.Duration(),
		"max_temp": c.MaxTemp,
		"kill_pct": c.KillPercentage,
	}).Info("cycle finalized")

	for _, sink := range s.deps.Sinks {
		if err := sink.PublishCycle(c); err != nil {
			name := sinkName(sink)
			s.deps.Metrics.PublishError(name)
			s.log.WithFields(logrus.Fields{"id": c.ID, "sink": name, "error": err}).Warn("cycle publish failed")
		}
	}
}

func (s *Session) emit(e Event) {
	for _, n := range s.deps.Notifiers {
		n.Notify(e)
	}
}

// requestInsight asks the Insighter for new text without blocking the loop.
// The result is handed back through s.insight; once ctx is done a late
// result is dropped. If two results race, the later one wins.
func (s *Session) requestInsight(ctx context.Context) {
	if s.deps.Insighter == nil {
		return
	}
	cycles := append([]logic.Cycle(nil), s.cycles...)
	go func() {
		text := s.deps.Insighter.Insight(ctx, cycles)
		select {
		case s.insight <- text:
		case <-ctx.Done():
		}
	}()
}

func sinkName(sink CycleSink) string {
	if n, ok := sink.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", sink)
}
