package assistant

import (
	"context"
	"sync"
)

// FakeCall records one Generate invocation.
type FakeCall struct {
	System  string
	History []Message
	Prompt  string
}

// FakeModel is a test double that returns a fixed reply.
type FakeModel struct {
	mu    sync.Mutex
	Reply string
	Err   error
	calls []FakeCall
}

// Generate records the call and returns Reply or Err.
func (f *FakeModel) Generate(_ context.Context, system string, history []Message, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FakeCall{System: system, History: history, Prompt: prompt})
	if f.Err != nil {
		return "", f.Err
	}
	return f.Reply, nil
}

// Calls returns a copy of recorded calls.
func (f *FakeModel) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}
