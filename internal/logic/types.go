// Package logic contains the sterilization cycle model: kill accumulation,
// phase simulation and cycle tracking.
// This package performs no I/O (no HTTP, MQTT, OS, or time.Sleep).
// Time and randomness are always injected by the caller.
package logic

import "time"

// Phase is the stage of the physical sterilization process.
type Phase string

const (
	PhaseHeating Phase = "HEATING"
	PhaseHolding Phase = "HOLDING"
	PhaseCooling Phase = "COOLING"
)

// CycleStatus is the outcome recorded for a finalized cycle.
type CycleStatus string

const (
	StatusCompleted CycleStatus = "COMPLETED"
	StatusFailed    CycleStatus = "FAILED"
	StatusAborted   CycleStatus = "ABORTED"
)

// Sample is a single temperature/pressure reading.
type Sample struct {
	Time        time.Time
	Temperature float64 // °C
	Pressure    float64 // kPa
}

// Cycle is a finalized sterilization run. Never mutated once emitted.
type Cycle struct {
	ID             string
	StartTime      time.Time
	EndTime        time.Time
	MaxTemp        float64
	MinPressure    float64
	Status         CycleStatus
	KillPercentage float64
}

// Duration returns the time between cycle start and end.
func (c Cycle) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}

// Input is one tick's worth of data for the Tracker.
type Input struct {
	Temperature float64
	Pressure    float64
	Elapsed     time.Duration // time covered by this sample
	Time        time.Time
}

// Result is what the Tracker reports after processing a tick.
type Result struct {
	KillPercentage float64
	KillPoints     float64
	CycleOpen      bool
	// Completed is set on the tick a cycle reaches the kill target.
	Completed *Cycle
}

// Accumulator is a read-only view of the in-progress cycle.
type Accumulator struct {
	Open           bool
	StartTime      time.Time
	KillPoints     float64
	MaxTemperature float64
	MinPressure    float64
}
