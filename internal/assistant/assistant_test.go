package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func cycle(status logic.CycleStatus, d time.Duration) logic.Cycle {
	return logic.Cycle{ID: "x", StartTime: t0, EndTime: t0.Add(d), Status: status, KillPercentage: 100}
}

func TestHeuristicInsight(t *testing.T) {
	long := 10 * time.Minute
	short := 90 * time.Second

	tests := []struct {
		name   string
		cycles []logic.Cycle
		want   string
	}{
		{"empty", nil, NoHistoryText},
		{"last failed", []logic.Cycle{cycle(logic.StatusCompleted, long), cycle(logic.StatusFailed, long)}, FailedText},
		{
			"efficient",
			[]logic.Cycle{
				cycle(logic.StatusCompleted, short), cycle(logic.StatusCompleted, short),
				cycle(logic.StatusCompleted, short), cycle(logic.StatusCompleted, short),
			},
			EfficiencyText,
		},
		{
			"three fast cycles is not enough",
			[]logic.Cycle{cycle(logic.StatusCompleted, short), cycle(logic.StatusCompleted, short), cycle(logic.StatusCompleted, short)},
			"Cycle #3 complete. Parameters within nominal range. Next maintenance check recommended in 7 cycles.",
		},
		{
			"first cycle",
			[]logic.Cycle{cycle(logic.StatusCompleted, long)},
			"Cycle #1 complete. Parameters within nominal range. Next maintenance check recommended in 9 cycles.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HeuristicInsight(tt.cycles))
		})
	}
}

func TestHeuristicInsightMaintenanceWraps(t *testing.T) {
	cycles := make([]logic.Cycle, 10)
	for i := range cycles {
		cycles[i] = cycle(logic.StatusCompleted, 10*time.Minute)
	}
	assert.Contains(t, HeuristicInsight(cycles), "in 10 cycles")
}

func TestSanitizeHistory(t *testing.T) {
	in := []Message{
		{Role: "assistant", Content: "Hello! How can I help?"},
		{Role: "user", Content: "Is it safe?"},
		{Role: "assistant", Content: "Yes."},
		{Role: "system", Content: "odd"},
		{Role: "user", Content: "Thanks"},
	}
	got := SanitizeHistory(in)

	require.Len(t, got, 4)
	assert.Equal(t, Message{Role: RoleUser, Content: "Is it safe?"}, got[0])
	assert.Equal(t, RoleModel, got[1].Role)
	assert.Equal(t, RoleModel, got[2].Role)
	assert.Equal(t, RoleUser, got[3].Role)

	assert.Nil(t, SanitizeHistory([]Message{{Role: "assistant", Content: "hi"}}))
	assert.Nil(t, SanitizeHistory(nil))
}

func TestSystemInstructionEmbedsContext(t *testing.T) {
	s := SystemInstruction(Context{Temperature: 121.5, Pressure: 205, KillPercentage: 42.345})
	assert.Contains(t, s, "Temperature: 121.5°C")
	assert.Contains(t, s, "Pressure: 205 kPa")
	assert.Contains(t, s, "Germ Kill Percentage: 42.3%")
	assert.Contains(t, s, "100%, congratulate")
}

func TestAskWithoutModel(t *testing.T) {
	a := New(nil, nil)
	assert.False(t, a.Configured())

	_, err := a.Ask(context.Background(), "status?", Context{}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAskPassesSanitizedHistory(t *testing.T) {
	m := &FakeModel{Reply: "All nominal."}
	a := New(m, nil)

	got, err := a.Ask(context.Background(), "status?", Context{Temperature: 100}, []Message{
		{Role: "assistant", Content: "greeting"},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "All nominal.", got)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "status?", calls[0].Prompt)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}}, calls[0].History)
	assert.Contains(t, calls[0].System, "Temperature: 100°C")
}

func TestAskModelError(t *testing.T) {
	a := New(&FakeModel{Err: errors.New("quota")}, nil)

	_, err := a.Ask(context.Background(), "status?", Context{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestInsightUsesHeuristicWithoutModel(t *testing.T) {
	a := New(nil, nil)
	cycles := []logic.Cycle{cycle(logic.StatusCompleted, 10*time.Minute)}
	assert.Equal(t, HeuristicInsight(cycles), a.Insight(context.Background(), cycles))
}

func TestInsightWithModel(t *testing.T) {
	m := &FakeModel{Reply: "  Cycle looks good.\n"}
	a := New(m, nil)

	cycles := make([]logic.Cycle, 12)
	for i := range cycles {
		cycles[i] = cycle(logic.StatusCompleted, 5*time.Minute)
		cycles[i].ID = fmt.Sprint(i)
	}
	assert.Equal(t, "Cycle looks good.", a.Insight(context.Background(), cycles))

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "12 cycles recorded")
	assert.Contains(t, calls[0].Prompt, "#12 COMPLETED duration=5m0s")
	assert.NotContains(t, calls[0].Prompt, "#2 COMPLETED", "only the last ten are listed")
}

func TestInsightModelErrorFallsBack(t *testing.T) {
	logger, hook := test.NewNullLogger()
	a := New(&FakeModel{Err: errors.New("unreachable")}, logger)

	got := a.Insight(context.Background(), []logic.Cycle{cycle(logic.StatusCompleted, time.Minute)})
	assert.Equal(t, FallbackText, got)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "insight generation failed", hook.LastEntry().Message)
}

func TestInsightEmptyHistorySkipsModel(t *testing.T) {
	m := &FakeModel{Reply: "unused"}
	a := New(m, nil)

	assert.Equal(t, NoHistoryText, a.Insight(context.Background(), nil))
	assert.Empty(t, m.Calls())
}

func TestNewGeminiModelRequiresKey(t *testing.T) {
	_, err := NewGeminiModel(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
