package source

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

func TestSimSourceFollowsSimulator(t *testing.T) {
	src := NewSimSource(logic.NewSimulator(logic.DefaultSimulatorConfig(), rand.New(rand.NewSource(5))))
	assert.Equal(t, KindSimulation, src.Kind())

	var r Reading
	var err error
	for i := 0; i < 200 && r.Phase != logic.PhaseHolding; i++ {
		r, err = src.Read(context.Background(), r)
		require.NoError(t, err)
	}
	require.Equal(t, logic.PhaseHolding, r.Phase)

	src.CycleCompleted(logic.Cycle{ID: "c"})
	assert.Equal(t, logic.PhaseCooling, src.Phase())

	rearmed := false
	for i := 0; i < 200 && !rearmed; i++ {
		r, err = src.Read(context.Background(), r)
		require.NoError(t, err)
		rearmed = r.Rearmed
	}
	assert.True(t, rearmed)
	assert.Equal(t, logic.PhaseHeating, r.Phase)
}

func TestFakeSourceScript(t *testing.T) {
	f := NewFakeSource(KindSimulation, Reading{Temperature: 1}, Reading{Temperature: 2})
	f.Errors = []error{nil, nil, ErrMalformed}

	prev := Reading{Temperature: -1}
	r, err := f.Read(context.Background(), prev)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Temperature)

	r, _ = f.Read(context.Background(), prev)
	assert.Equal(t, 2.0, r.Temperature)

	r, err = f.Read(context.Background(), prev)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.Equal(t, prev, r)

	r, err = f.Read(context.Background(), prev)
	require.NoError(t, err)
	assert.Equal(t, 2.0, r.Temperature, "last reading repeats")
	assert.Equal(t, 4, f.Calls)
	assert.Equal(t, KindSimulation, f.Kind())
}
