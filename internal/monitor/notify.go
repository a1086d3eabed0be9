package monitor

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/autoclave-monitor/internal/logic"
	"github.com/sweeney/autoclave-monitor/internal/source"
)

// EventType names a session event.
type EventType string

const (
	EventCycleCompleted EventType = "CYCLE_COMPLETED"
	EventCycleAborted   EventType = "CYCLE_ABORTED"
	EventSourceChanged  EventType = "SOURCE_CHANGED"
	EventStarted        EventType = "STARTED"
	EventStopped        EventType = "STOPPED"
)

// Event is passed to every Notifier.
type Event struct {
	Type   EventType
	Time   time.Time
	Source source.Kind
	Cycle  *logic.Cycle // set for cycle events
}

// Notifier receives session events. Notify is called on the tick loop and
// must not block.
type Notifier interface {
	Notify(e Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) { f(e) }

// LogNotifier writes events to a logger.
type LogNotifier struct {
	Log logrus.FieldLogger
}

// Notify logs e.
func (n LogNotifier) Notify(e Event) {
	entry := n.Log.WithFields(logrus.Fields{"event": e.Type, "source": e.Source})
	if e.Cycle != nil {
		entry = entry.WithFields(logrus.Fields{"id": e.Cycle.ID, "kill_pct": e.Cycle.KillPercentage})
	}
	switch e.Type {
	case EventCycleCompleted:
		entry.Info("Sterilization complete")
	case EventCycleAborted:
		entry.Warn("Sterilization cycle aborted")
	default:
		entry.Info("session event")
	}
}

// Pulser drives a completion indicator.
type Pulser interface {
	Pulse(d time.Duration) error
}

// PulseNotifier pulses an indicator for cycle completion and abort events.
type PulseNotifier struct {
	Indicator Pulser
	Duration  time.Duration
	Log       logrus.FieldLogger
}

// Notify pulses the indicator for cycle events; aborts get a pulse three
// times as long.
func (n PulseNotifier) Notify(e Event) {
	d := n.Duration
	switch e.Type {
	case EventCycleCompleted:
	case EventCycleAborted:
		d *= 3
	default:
		return
	}
	if err := n.Indicator.Pulse(d); err != nil && n.Log != nil {
		n.Log.WithError(err).Warn("indicator pulse failed")
	}
}
