package source

import (
	"context"
	"errors"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// FakeSource is a test double that returns scripted readings.
type FakeSource struct {
	// Readings contains scripted values. Each call to Read consumes the
	// next one; once exhausted the last is repeated.
	Readings []Reading
	// Errors, if non-nil at the same index as the current call, is
	// returned instead of the reading.
	Errors []error
	// SourceKind is returned by Kind (KindLive if empty).
	SourceKind Kind
	// Completed records cycles passed to CycleCompleted.
	Completed []logic.Cycle
	// Calls counts Read invocations.
	Calls int
}

// NewFakeSource creates a FakeSource with the given readings.
func NewFakeSource(kind Kind, readings ...Reading) *FakeSource {
	return &FakeSource{SourceKind: kind, Readings: readings}
}

// Kind returns the configured kind.
func (f *FakeSource) Kind() Kind {
	if f.SourceKind == "" {
		return KindLive
	}
	return f.SourceKind
}

// Read returns the next scripted reading or error.
func (f *FakeSource) Read(_ context.Context, prev Reading) (Reading, error) {
	i := f.Calls
	f.Calls++
	if i < len(f.Errors) && f.Errors[i] != nil {
		return prev, f.Errors[i]
	}
	if len(f.Readings) == 0 {
		return prev, errors.New("no readings configured")
	}
	if i >= len(f.Readings) {
		i = len(f.Readings) - 1
	}
	return f.Readings[i], nil
}

// CycleCompleted records c.
func (f *FakeSource) CycleCompleted(c logic.Cycle) {
	f.Completed = append(f.Completed, c)
}
