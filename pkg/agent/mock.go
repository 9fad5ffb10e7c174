package agent

import (
	"context"
	"sync"
)

// Mock implements Agent for testing.
type Mock struct {
	// RunFunc is called when RunTurn is invoked. If nil, Steps are
	// reported and Reply is returned, or "Done: <task>" when Reply is empty.
	RunFunc func(ctx context.Context, items []Item, startURL string, onStep StepFunc) ([]Item, error)

	Steps []string
	Reply string

	mu     sync.Mutex
	calls  []MockCall
	closed bool
}

// MockCall records a RunTurn invocation.
type MockCall struct {
	Items    []Item
	StartURL string
}

// NewMock returns a mock that reports steps before answering.
func NewMock(steps ...string) *Mock {
	return &Mock{Steps: steps}
}

// RunTurn records the call and returns the configured result.
func (m *Mock) RunTurn(ctx context.Context, items []Item, startURL string, onStep StepFunc) ([]Item, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Items: append([]Item(nil), items...), StartURL: startURL})
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, ErrClosed
	}
	if m.RunFunc != nil {
		return m.RunFunc(ctx, items, startURL, onStep)
	}

	task, err := Task(items)
	if err != nil {
		return nil, err
	}
	for _, s := range m.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onStep != nil {
			onStep(s)
		}
	}
	reply := m.Reply
	if reply == "" {
		reply = "Done: " + task
	}
	return []Item{{Role: RoleAssistant, Content: reply}}, nil
}

// Calls returns a copy of recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Agent = (*Mock)(nil)
