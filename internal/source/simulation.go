package source

import (
	"context"
	"sync"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// SimSource serves readings from a logic.Simulator.
type SimSource struct {
	mu  sync.Mutex
	sim *logic.Simulator
}

// NewSimSource wraps sim.
func NewSimSource(sim *logic.Simulator) *SimSource {
	return &SimSource{sim: sim}
}

// Kind returns KindSimulation.
func (s *SimSource) Kind() Kind { return KindSimulation }

// Read advances the simulation by one tick. It never fails.
func (s *SimSource) Read(_ context.Context, _ Reading) (Reading, error) {
	s.mu.Lock()
	step := s.sim.Next()
	s.mu.Unlock()
	return Reading{
		Temperature: step.Temperature,
		Pressure:    step.Pressure,
		Phase:       step.Phase,
		Rearmed:     step.Rearmed,
	}, nil
}

// CycleCompleted starts the cool-down.
func (s *SimSource) CycleCompleted(logic.Cycle) {
	s.mu.Lock()
	s.sim.CycleCompleted()
	s.mu.Unlock()
}

// Phase returns the simulator's current phase.
func (s *SimSource) Phase() logic.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim.Phase()
}
