package assistant

import (
	"fmt"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// Heuristic insight texts.
const (
	NoHistoryText  = "No historical data available. Complete a full cycle to generate insights."
	FailedText     = "Analysis: The last cycle failed to reach target kill parameters. Suggest checking pressure valve seal integrity."
	EfficiencyText = "Efficiency Note: System is performing above baseline. Heat distribution appears optimal."
)

// HeuristicInsight derives an insight from the cycle list without a model.
func HeuristicInsight(cycles []logic.Cycle) string {
	if len(cycles) == 0 {
		return NoHistoryText
	}

	last := cycles[len(cycles)-1]
	if last.Status == logic.StatusFailed {
		return FailedText
	}

	completed := 0
	var total float64
	for _, c := range cycles {
		if c.Status == logic.StatusCompleted {
			completed++
		}
		total += c.Duration().Seconds()
	}
	if completed > 3 && total/float64(len(cycles)) < 120 {
		return EfficiencyText
	}

	n := len(cycles)
	return fmt.Sprintf("Cycle #%d complete. Parameters within nominal range. Next maintenance check recommended in %d cycles.", n, 10-n%10)
}
