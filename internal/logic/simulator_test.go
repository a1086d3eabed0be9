package logic

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(seed int64) *Simulator {
	return NewSimulator(DefaultSimulatorConfig(), rand.New(rand.NewSource(seed)))
}

func TestSimulatorStartsHeatingAtAmbient(t *testing.T) {
	s := newTestSimulator(1)
	assert.Equal(t, PhaseHeating, s.Phase())

	step := s.Next()
	cfg := DefaultSimulatorConfig()
	assert.Greater(t, step.Temperature, cfg.AmbientTemperature+cfg.HeatStep-cfg.TemperatureNoise)
	assert.Less(t, step.Temperature, cfg.AmbientTemperature+cfg.HeatStep+cfg.StepJitter+cfg.TemperatureNoise)
}

func TestSimulatorHeatsIntoHolding(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		s := newTestSimulator(seed)
		cfg := DefaultSimulatorConfig()
		prevTemp := cfg.AmbientTemperature - cfg.TemperatureNoise

		reached := false
		for i := 0; i < 200; i++ {
			step := s.Next()
			if step.Phase == PhaseHolding {
				reached = true
				break
			}
			require.Equal(t, PhaseHeating, step.Phase)
			assert.LessOrEqual(t, step.Temperature, cfg.HoldTemperature+cfg.TemperatureNoise, "seed %d tick %d", seed, i)
			assert.LessOrEqual(t, step.Pressure, cfg.HoldPressure+cfg.PressureNoise, "seed %d tick %d", seed, i)
			// Heating steps dwarf the noise, so readings keep rising until the clamp.
			if step.Temperature < cfg.HoldTemperature-cfg.HeatStep {
				assert.Greater(t, step.Temperature, prevTemp, "seed %d tick %d", seed, i)
			}
			prevTemp = step.Temperature
		}
		assert.True(t, reached, "seed %d never reached HOLDING", seed)
	}
}

func TestSimulatorHoldsUntilCycleCompleted(t *testing.T) {
	s := newTestSimulator(7)
	cfg := DefaultSimulatorConfig()
	for s.Phase() != PhaseHolding {
		s.Next()
	}

	for i := 0; i < 500; i++ {
		step := s.Next()
		require.Equal(t, PhaseHolding, step.Phase)
		assert.GreaterOrEqual(t, step.Temperature, cfg.HoldTemperature-cfg.TemperatureNoise)
		assert.LessOrEqual(t, step.Temperature, cfg.HoldTemperature+cfg.HoldTemperatureBand+cfg.TemperatureNoise)
		assert.GreaterOrEqual(t, step.Pressure, cfg.HoldPressure-cfg.PressureNoise)
		assert.LessOrEqual(t, step.Pressure, cfg.HoldPressure+cfg.HoldPressureBand+cfg.PressureNoise)
	}
}

func TestSimulatorCoolsAndRearms(t *testing.T) {
	s := newTestSimulator(3)
	cfg := DefaultSimulatorConfig()
	for s.Phase() != PhaseHolding {
		s.Next()
	}
	s.Next()
	s.CycleCompleted()

	rearms := 0
	for i := 0; i < 200; i++ {
		step := s.Next()
		assert.GreaterOrEqual(t, step.Temperature, cfg.AmbientTemperature-cfg.TemperatureNoise)
		assert.GreaterOrEqual(t, step.Pressure, cfg.AmbientPressure-cfg.PressureNoise)
		if step.Rearmed {
			rearms++
			assert.Equal(t, PhaseHeating, step.Phase)
			assert.LessOrEqual(t, step.Temperature, cfg.RearmTemperature+cfg.TemperatureNoise)
			break
		}
		require.Equal(t, PhaseCooling, step.Phase)
	}
	assert.Equal(t, 1, rearms)
	assert.Equal(t, PhaseHeating, s.Phase())
}

func TestSimulatorPhaseOrderWithTracker(t *testing.T) {
	s := newTestSimulator(42)
	tr := NewTracker()

	var order []Phase
	completed := 0
	for i := 0; i < 2000 && completed < 2; i++ {
		step := s.Next()
		if len(order) == 0 || order[len(order)-1] != step.Phase {
			order = append(order, step.Phase)
		}
		if step.Rearmed {
			tr.Discard()
		}
		res := tr.Process(Input{Temperature: step.Temperature, Pressure: step.Pressure, Elapsed: tick, Time: trackerStart})
		if res.Completed != nil {
			completed++
			assert.Equal(t, PhaseHolding, step.Phase, "completion happens while holding")
			s.CycleCompleted()
		}
	}

	require.Equal(t, 2, completed)
	want := []Phase{PhaseHeating, PhaseHolding, PhaseCooling, PhaseHeating, PhaseHolding}
	assert.Equal(t, want, order)
}

func TestSimulatorDeterministicForSeed(t *testing.T) {
	a, b := newTestSimulator(99), newTestSimulator(99)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Next(), b.Next())
	}
}

func TestSimulatorConfigValidate(t *testing.T) {
	require.NoError(t, DefaultSimulatorConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*SimulatorConfig)
		want   string
	}{
		{"rearm below ambient", func(c *SimulatorConfig) { c.RearmTemperature = 10 }, "rearm_temperature"},
		{"rearm at cycle start", func(c *SimulatorConfig) { c.RearmTemperature = CycleStartTemperature }, "rearm_temperature"},
		{"hold below effective", func(c *SimulatorConfig) { c.HoldTemperature = 99 }, "hold_temperature"},
		{"hold pressure below ambient", func(c *SimulatorConfig) { c.HoldPressure = 90 }, "hold_pressure"},
		{"zero heat step", func(c *SimulatorConfig) { c.HeatStep = 0 }, "heat_step"},
		{"zero heat pressure step", func(c *SimulatorConfig) { c.HeatPressureStep = 0 }, "heat_step"},
		{"zero cool step", func(c *SimulatorConfig) { c.CoolStep = 0 }, "cool_step"},
		{"negative band", func(c *SimulatorConfig) { c.HoldPressureBand = -1 }, "bands"},
		{"negative jitter", func(c *SimulatorConfig) { c.StepJitter = -0.5 }, "step_jitter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSimulatorConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
