package logic

import (
	"time"

	"github.com/google/uuid"
)

// Tracker accumulates kill points from a stream of samples and detects
// cycle start and completion. At most one cycle is open at a time.
type Tracker struct {
	target  float64
	newID   func() string
	history *History

	open        bool
	startTime   time.Time
	killPoints  float64
	maxTemp     float64
	minPressure float64
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTarget sets the kill points needed to complete a cycle.
// Non-positive values are ignored.
func WithTarget(points float64) TrackerOption {
	return func(t *Tracker) {
		if points > 0 {
			t.target = points
		}
	}
}

// WithIDFunc replaces the cycle ID generator (uuid v4 by default).
func WithIDFunc(f func() string) TrackerOption {
	return func(t *Tracker) {
		if f != nil {
			t.newID = f
		}
	}
}

// WithHistoryLength sets the number of samples retained for charting.
func WithHistoryLength(n int) TrackerOption {
	return func(t *Tracker) {
		t.history = NewHistory(n)
	}
}

// NewTracker creates a Tracker with no open cycle.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{
		target:  TargetKillPoints,
		newID:   uuid.NewString,
		history: NewHistory(DefaultHistoryLength),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Process takes one tick's sample and returns the updated kill state.
// On the tick the target is reached a COMPLETED cycle is returned and
// the accumulator is cleared.
func (t *Tracker) Process(in Input) Result {
	t.history.Push(Sample{Time: in.Time, Temperature: in.Temperature, Pressure: in.Pressure})

	if in.Temperature > t.maxTemp {
		t.maxTemp = in.Temperature
	}
	if t.open && in.Pressure < t.minPressure {
		t.minPressure = in.Pressure
	}
	t.killPoints += KillIncrement(in.Temperature, in.Elapsed.Seconds())

	// Open a cycle on the threshold crossing; kill earned before it is dropped.
	if !t.open && in.Temperature > CycleStartTemperature {
		t.open = true
		t.startTime = in.Time
		t.killPoints = 0
		t.maxTemp = in.Temperature
		t.minPressure = in.Pressure
	}

	if t.open && t.killPoints >= t.target {
		points := t.killPoints
		cycle := t.finalize(in.Time, StatusCompleted, 100)
		return Result{
			KillPercentage: 100,
			KillPoints:     points,
			Completed:      &cycle,
		}
	}

	return Result{
		KillPercentage: KillPercentage(t.killPoints, t.target),
		KillPoints:     t.killPoints,
		CycleOpen:      t.open,
	}
}

// Abort closes the open cycle with an ABORTED record. It returns false if
// no cycle is open.
func (t *Tracker) Abort(now time.Time) (Cycle, bool) {
	if !t.open {
		return Cycle{}, false
	}
	return t.finalize(now, StatusAborted, KillPercentage(t.killPoints, t.target)), true
}

// Discard clears the accumulator without producing a record, so the next
// sample above CycleStartTemperature opens a fresh cycle.
func (t *Tracker) Discard() {
	t.reset()
}

// State returns a copy of the accumulator.
func (t *Tracker) State() Accumulator {
	return Accumulator{
		Open:           t.open,
		StartTime:      t.startTime,
		KillPoints:     t.killPoints,
		MaxTemperature: t.maxTemp,
		MinPressure:    t.minPressure,
	}
}

// Target returns the kill points needed to complete a cycle.
func (t *Tracker) Target() float64 {
	return t.target
}

// History returns the retained samples, oldest first.
func (t *Tracker) History() []Sample {
	return t.history.Samples()
}

func (t *Tracker) finalize(end time.Time, status CycleStatus, killPct float64) Cycle {
	cycle := Cycle{
		ID:             t.newID(),
		StartTime:      t.startTime,
		EndTime:        end,
		MaxTemp:        t.maxTemp,
		MinPressure:    t.minPressure,
		Status:         status,
		KillPercentage: killPct,
	}
	t.reset()
	return cycle
}

func (t *Tracker) reset() {
	t.open = false
	t.startTime = time.Time{}
	t.killPoints = 0
	t.maxTemp = 0
	t.minPressure = 0
}
