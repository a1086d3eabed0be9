// Package source provides the sample sources polled once per tick: an HTTP
// live feed from the ingestion service and an internal physical simulation.
package source

import (
	"context"
	"errors"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// Kind names a sample source.
type Kind string

const (
	KindLive       Kind = "live"
	KindSimulation Kind = "simulation"
)

// ParseKind converts a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindLive, KindSimulation:
		return Kind(s), nil
	}
	return "", errors.New("source must be \"live\" or \"simulation\"")
}

// Sentinel errors returned by Read. Callers fall back to the previous reading.
var (
	ErrNotConfigured = errors.New("no live feed URL configured")
	ErrNoData        = errors.New("live feed has no reading yet")
	ErrMalformed     = errors.New("live feed payload has no temperature")
)

// Reading is one tick's sample as produced by a Source.
type Reading struct {
	Temperature float64
	Pressure    float64
	// Phase is set by the simulation only.
	Phase logic.Phase
	// Rearmed is set by the simulation when a cool-down finished.
	Rearmed bool
}

// Source supplies one reading per tick.
type Source interface {
	// Kind identifies the source.
	Kind() Kind
	// Read returns the next reading. On failure it returns prev unchanged
	// together with a non-nil error; it never panics on bad data.
	Read(ctx context.Context, prev Reading) (Reading, error)
}

// CycleObserver is implemented by sources that react to cycle completion.
type CycleObserver interface {
	CycleCompleted(c logic.Cycle)
}
