// Package assistant answers operator questions and writes post-cycle
// insights, using a generative model when one is configured.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sweeney/autoclave-monitor/internal/logic"
)

// ErrNotConfigured is returned by Ask when no model is available.
var ErrNotConfigured = errors.New("gemini API key is not configured")

// FallbackText is shown in place of an answer when the model cannot be reached.
const FallbackText = "I'm having trouble connecting to the AI brain right now. Please check your internet or API configuration."

// Roles accepted in chat history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Context is the live state the model is told about.
type Context struct {
	Temperature    float64 `json:"temperature"`
	Pressure       float64 `json:"pressure"`
	KillPercentage float64 `json:"killPercentage"`
}

// Model generates a reply to prompt given a system instruction and prior turns.
type Model interface {
	Generate(ctx context.Context, system string, history []Message, prompt string) (string, error)
}

// Assistant wraps an optional Model.
type Assistant struct {
	model Model
	log   logrus.FieldLogger
}

// New creates an Assistant. A nil model limits it to heuristic insights;
// Ask then fails with ErrNotConfigured.
func New(model Model, log logrus.FieldLogger) *Assistant {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Assistant{model: model, log: log.WithField("component", "assistant")}
}

// Configured reports whether a model is available.
func (a *Assistant) Configured() bool {
	return a.model != nil
}

// Ask answers a free-form question about the live system.
func (a *Assistant) Ask(ctx context.Context, message string, live Context, history []Message) (string, error) {
	if a.model == nil {
		return "", ErrNotConfigured
	}
	text, err := a.model.Generate(ctx, SystemInstruction(live), SanitizeHistory(history), message)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return text, nil
}

// Insight returns the text shown after a cycle completes. Without a model
// it falls back to HeuristicInsight; a model error yields FallbackText.
func (a *Assistant) Insight(ctx context.Context, cycles []logic.Cycle) string {
	if a.model == nil || len(cycles) == 0 {
		return HeuristicInsight(cycles)
	}
	text, err := a.model.Generate(ctx, insightInstruction, nil, insightPrompt(cycles))
	if err != nil {
		a.log.WithError(err).Warn("insight generation failed")
		return FallbackText
	}
	return strings.TrimSpace(text)
}

// SanitizeHistory drops everything before the first user turn and maps any
// non-user role to RoleModel.
func SanitizeHistory(history []Message) []Message {
	first := -1
	for i, m := range history {
		if m.Role == RoleUser {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}
	out := make([]Message, 0, len(history)-first)
	for _, m := range history[first:] {
		role := RoleModel
		if m.Role == RoleUser {
			role = RoleUser
		}
		out = append(out, Message{Role: role, Content: m.Content})
	}
	return out
}

// SystemInstruction builds the chat system prompt around the live readings.
func SystemInstruction(c Context) string {
	return fmt.Sprintf(`You are a Sterilization Expert AI assistant.
You are monitoring a real-time sterilization system.

Current System Context:
- Temperature: %g°C
- Pressure: %g kPa
- Germ Kill Percentage: %.1f%%

Instructions:
1. Provide concise, professional, and helpful advice.
2. If the temperature is below 121°C, note that effective sterilization usually happens above that point.
3. If pathogen elimination is 100%%, congratulate the user on a successful cycle.
4. Answer questions about the system status based on the provided context.
5. If you don't know something, be honest.`, c.Temperature, c.Pressure, c.KillPercentage)
}

const insightInstruction = `You are a Sterilization Expert AI reviewing autoclave cycle records.
Reply with one or two sentences for the operator dashboard. Mention anomalies in duration,
peak temperature or minimum pressure, and when the next maintenance check is due.`

// insightPrompt summarises the most recent cycles, newest last.
func insightPrompt(cycles []logic.Cycle) string {
	const maxListed = 10
	start := 0
	if len(cycles) > maxListed {
		start = len(cycles) - maxListed
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d cycles recorded. Most recent:\n", len(cycles))
	for i, c := range cycles[start:] {
		fmt.Fprintf(&b, "#%d %s duration=%s maxTemp=%.1f°C minPressure=%.1fkPa kill=%.1f%%\n",
			start+i+1, c.Status, c.Duration().Round(time.Second), c.MaxTemp, c.MinPressure, c.KillPercentage)
	}
	return b.String()
}
