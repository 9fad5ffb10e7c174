package stt

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/voicenav/pkg/audioio"
)

// Mock implements Provider for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, Text is returned.
	TranscribeFunc func(ctx context.Context, buf audioio.Buffer) (string, error)

	// Text is the fixed transcript returned when TranscribeFunc is nil.
	Text string

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Transcribe invocation.
type MockCall struct {
	Duration time.Duration
	Time     time.Time
}

// NewMock returns a mock that always hears text.
func NewMock(text string) *Mock {
	return &Mock{Text: text}
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Transcribe records the call and returns the configured result.
func (m *Mock) Transcribe(ctx context.Context, buf audioio.Buffer) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Duration: buf.Duration(), Time: time.Now()})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", wrap(m.Name(), 0, err)
	}
	if m.TranscribeFunc != nil {
		text, err := m.TranscribeFunc(ctx, buf)
		return text, wrap(m.Name(), 0, err)
	}
	return m.Text, nil
}

// Calls returns a copy of recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times Transcribe ran.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

var _ Provider = (*Mock)(nil)
