package logic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKillIncrementBelowEffectiveTemperature(t *testing.T) {
	for _, temp := range []float64{-40, 0, 20, 50, 99, 99.999} {
		if got := KillIncrement(temp, 2); got != 0 {
			t.Errorf("KillIncrement(%v, 2): got %v, want 0", temp, got)
		}
	}
}

func TestKillIncrementAtEffectiveTemperature(t *testing.T) {
	assert.InDelta(t, BaseKillRate, KillIncrement(100, 1), 1e-12)
	assert.InDelta(t, BaseKillRate*10, KillIncrement(120, 1), 1e-12)
}

func TestKillIncrementMonotonicInTemperature(t *testing.T) {
	for _, d := range []float64{0.5, 1, 2, 10} {
		prev := KillIncrement(100, d)
		for temp := 100.5; temp <= 140; temp += 0.5 {
			got := KillIncrement(temp, d)
			if got < prev {
				t.Fatalf("d=%v: KillIncrement(%v)=%v < KillIncrement(%v)=%v", d, temp, got, temp-0.5, prev)
			}
			prev = got
		}
	}
}

func TestKillIncrementLinearInElapsed(t *testing.T) {
	for _, temp := range []float64{100, 110, 121, 123.7, 134} {
		for _, d := range []float64{0.25, 1, 2, 7.5} {
			assert.Equal(t, 2*KillIncrement(temp, d), KillIncrement(temp, 2*d), "temp=%v d=%v", temp, d)
		}
	}
}

func TestKillIncrementDegenerateInputs(t *testing.T) {
	assert.Zero(t, KillIncrement(math.NaN(), 2))
	assert.Zero(t, KillIncrement(121, 0))
	assert.Zero(t, KillIncrement(121, -2))
	assert.Zero(t, KillIncrement(121, math.NaN()))
}

func TestKillPercentageClamped(t *testing.T) {
	assert.Zero(t, KillPercentage(0, TargetKillPoints))
	assert.Equal(t, 50.0, KillPercentage(150, TargetKillPoints))
	assert.Equal(t, 100.0, KillPercentage(300, TargetKillPoints))
	assert.Equal(t, 100.0, KillPercentage(900, TargetKillPoints))
	assert.Zero(t, KillPercentage(10, 0))
}
