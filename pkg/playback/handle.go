package playback

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Status is how a playback ended.
type Status int

const (
	// StatusCompleted means the whole buffer was played.
	StatusCompleted Status = iota
	// StatusSkipped means playback was cancelled part way.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Handle is the cancellation token for one playback. A fresh handle is
// created for every Play call, so cancelling one never leaks into the next.
type Handle struct {
	ID string

	cancelled atomic.Bool
	once      sync.Once
	done      chan struct{}
}

// NewHandle returns an uncancelled handle.
func NewHandle() *Handle {
	return &Handle{
		ID:   uuid.New().String(),
		done: make(chan struct{}),
	}
}

// Cancel requests that playback stop. Safe to call more than once and
// from any goroutine.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.cancelled.Store(true)
		close(h.done)
	})
}

// Cancelled reports whether Cancel was called.
func (h *Handle) Cancelled() bool {
	return h.cancelled.Load()
}

// Done is closed when Cancel is called.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
