package logic

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// SimulatorConfig holds the physical targets and step sizes of the
// synthetic autoclave trajectory.
type SimulatorConfig struct {
	HoldTemperature     float64 `yaml:"hold_temperature"`      // °C reached at end of HEATING
	HoldPressure        float64 `yaml:"hold_pressure"`         // kPa reached at end of HEATING
	HoldTemperatureBand float64 `yaml:"hold_temperature_band"` // width of the HOLDING band above HoldTemperature
	HoldPressureBand    float64 `yaml:"hold_pressure_band"`
	AmbientTemperature  float64 `yaml:"ambient_temperature"`
	AmbientPressure     float64 `yaml:"ambient_pressure"`
	RearmTemperature    float64 `yaml:"rearm_temperature"` // COOLING ends at or below this
	HeatStep            float64 `yaml:"heat_step"`         // °C per tick, before jitter
	HeatPressureStep    float64 `yaml:"heat_pressure_step"`
	CoolStep            float64 `yaml:"cool_step"`
	CoolPressureStep    float64 `yaml:"cool_pressure_step"`
	StepJitter          float64 `yaml:"step_jitter"`       // uniform [0, StepJitter) added to each step
	TemperatureNoise    float64 `yaml:"temperature_noise"` // symmetric sensor noise amplitude
	PressureNoise       float64 `yaml:"pressure_noise"`
}

// DefaultSimulatorConfig returns a trajectory that ramps to 121 °C / 205 kPa,
// holds there, and cools back to ambient.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		HoldTemperature:     121,
		HoldPressure:        205,
		HoldTemperatureBand: 2,
		HoldPressureBand:    5,
		AmbientTemperature:  20,
		AmbientPressure:     100,
		RearmTemperature:    25,
		HeatStep:            2,
		HeatPressureStep:    5,
		CoolStep:            3,
		CoolPressureStep:    5,
		StepJitter:          1,
		TemperatureNoise:    0.25,
		PressureNoise:       0.5,
	}
}

// Validate checks that the trajectory can complete a cycle and re-arm:
// ambient <= rearm < cycle start < hold, hold is hot enough to kill, and
// every step moves toward its target.
func (c SimulatorConfig) Validate() error {
	switch {
	case c.RearmTemperature < c.AmbientTemperature:
		return fmt.Errorf("rearm_temperature %g is below ambient_temperature %g, cooling would never finish",
			c.RearmTemperature, c.AmbientTemperature)
	case c.RearmTemperature >= CycleStartTemperature:
		return fmt.Errorf("rearm_temperature %g must be below the cycle start temperature %g",
			c.RearmTemperature, CycleStartTemperature)
	case c.HoldTemperature < EffectiveTemperature:
		return fmt.Errorf("hold_temperature %g is below the effective temperature %g, no cycle would complete",
			c.HoldTemperature, EffectiveTemperature)
	case c.HoldPressure < c.AmbientPressure:
		return fmt.Errorf("hold_pressure %g is below ambient_pressure %g", c.HoldPressure, c.AmbientPressure)
	case c.HeatStep <= 0 || c.HeatPressureStep <= 0:
		return errors.New("heat_step and heat_pressure_step must be positive")
	case c.CoolStep <= 0 || c.CoolPressureStep <= 0:
		return errors.New("cool_step and cool_pressure_step must be positive")
	case c.HoldTemperatureBand < 0 || c.HoldPressureBand < 0:
		return errors.New("hold bands must be non-negative")
	case c.StepJitter < 0 || c.TemperatureNoise < 0 || c.PressureNoise < 0:
		return errors.New("step_jitter and noise amplitudes must be non-negative")
	}
	return nil
}

// Step is one simulated reading.
type Step struct {
	Temperature float64
	Pressure    float64
	Phase       Phase
	// Rearmed is set on the tick COOLING finished and the simulator went
	// back to HEATING. Any cycle opened during the cool-down should be
	// discarded.
	Rearmed bool
}

// Simulator produces a synthetic HEATING → HOLDING → COOLING trajectory.
// It keeps noise-free state internally; noise is only applied to the
// emitted reading so phase comparisons see clamped values.
// Not safe for concurrent use.
type Simulator struct {
	cfg         SimulatorConfig
	rng         *rand.Rand
	phase       Phase
	temperature float64
	pressure    float64
}

// NewSimulator creates a Simulator at ambient conditions in HEATING.
func NewSimulator(cfg SimulatorConfig, rng *rand.Rand) *Simulator {
	return &Simulator{
		cfg:         cfg,
		rng:         rng,
		phase:       PhaseHeating,
		temperature: cfg.AmbientTemperature,
		pressure:    cfg.AmbientPressure,
	}
}

// Phase returns the current phase.
func (s *Simulator) Phase() Phase {
	return s.phase
}

// CycleCompleted moves the simulator into COOLING. Called when the
// tracker reports the kill target reached.
func (s *Simulator) CycleCompleted() {
	s.phase = PhaseCooling
}

// Next advances the trajectory by one tick.
func (s *Simulator) Next() Step {
	c := s.cfg
	rearmed := false

	switch s.phase {
	case PhaseHeating:
		if s.temperature < c.HoldTemperature {
			s.temperature = math.Min(c.HoldTemperature, s.temperature+c.HeatStep+s.jitter())
		}
		if s.pressure < c.HoldPressure {
			s.pressure = math.Min(c.HoldPressure, s.pressure+c.HeatPressureStep+s.jitter())
		}
		if s.temperature >= c.HoldTemperature && s.pressure >= c.HoldPressure {
			s.phase = PhaseHolding
		}

	case PhaseHolding:
		s.temperature = c.HoldTemperature + s.rng.Float64()*c.HoldTemperatureBand
		s.pressure = c.HoldPressure + s.rng.Float64()*c.HoldPressureBand

	case PhaseCooling:
		if s.temperature > c.AmbientTemperature {
			s.temperature = math.Max(c.AmbientTemperature, s.temperature-c.CoolStep-s.jitter())
		}
		if s.pressure > c.AmbientPressure {
			s.pressure = math.Max(c.AmbientPressure, s.pressure-c.CoolPressureStep-s.jitter())
		}
		if s.temperature <= c.RearmTemperature {
			s.phase = PhaseHeating
			rearmed = true
		}
	}

	return Step{
		Temperature: s.temperature + s.noise(c.TemperatureNoise),
		Pressure:    s.pressure + s.noise(c.PressureNoise),
		Phase:       s.phase,
		Rearmed:     rearmed,
	}
}

func (s *Simulator) jitter() float64 {
	return s.rng.Float64() * s.cfg.StepJitter
}

// noise returns a value in [-amplitude, amplitude).
func (s *Simulator) noise(amplitude float64) float64 {
	return (s.rng.Float64()*2 - 1) * amplitude
}
