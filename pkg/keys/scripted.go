package keys

import (
	"context"
	"sync"
	"time"
)

// Scripted is a Source driven by code, for tests and the text console.
type Scripted struct {
	mu     sync.Mutex
	events chan Event
	closed bool
	starts int
}

// NewScripted creates a scripted source with room for buffer pending events.
func NewScripted(buffer int) *Scripted {
	if buffer <= 0 {
		buffer = 16
	}
	return &Scripted{events: make(chan Event, buffer)}
}

// Start records the call.
func (s *Scripted) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return nil
}

// Events returns the event channel.
func (s *Scripted) Events() <-chan Event {
	return s.events
}

// Press emits a key-down event. It blocks if the buffer is full.
func (s *Scripted) Press(k Key) {
	s.send(Event{Key: k, Pressed: true, Time: time.Now()})
}

// Release emits a key-up event.
func (s *Scripted) Release(k Key) {
	s.send(Event{Key: k, Pressed: false, Time: time.Now()})
}

// Tap presses and releases k.
func (s *Scripted) Tap(k Key) {
	s.Press(k)
	s.Release(k)
}

// Hold presses k, waits d, then releases it.
func (s *Scripted) Hold(k Key, d time.Duration) {
	s.Press(k)
	time.Sleep(d)
	s.Release(k)
}

func (s *Scripted) send(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.events <- ev
}

// Starts returns how many times Start was called.
func (s *Scripted) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Close closes the event channel.
func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	return nil
}

var _ Source = (*Scripted)(nil)
