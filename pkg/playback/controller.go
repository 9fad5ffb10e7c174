package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/voicenav/pkg/audioio"
)

const (
	// DefaultChunk is how much audio is written between cancellation checks.
	DefaultChunk = 40 * time.Millisecond

	// DefaultLead is how far writes run ahead of real time. It bounds how
	// much audio the device still holds when a skip arrives.
	DefaultLead = 120 * time.Millisecond
)

// Controller plays buffers through a sink, one at a time.
type Controller struct {
	sink   audioio.Sink
	logger *slog.Logger

	chunk  time.Duration
	lead   time.Duration
	paced  bool
	onPlay func(id string, d time.Duration)

	mu sync.Mutex // held for the whole of Play

	completed atomic.Int64
	skipped   atomic.Int64
	playing   atomic.Bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithChunk sets the write granularity. Values above 50ms are clamped so a
// skip is always observed within 50ms.
func WithChunk(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 50*time.Millisecond {
			d = 50 * time.Millisecond
		}
		if d > 0 {
			c.chunk = d
		}
	}
}

// WithLead sets how far writes may run ahead of real time.
func WithLead(d time.Duration) ControllerOption {
	return func(c *Controller) { c.lead = d }
}

// WithoutPacing writes as fast as the sink accepts. For sinks that pace
// themselves and for tests.
func WithoutPacing() ControllerOption {
	return func(c *Controller) { c.paced = false }
}

// WithOnPlay registers a callback run when a playback starts.
func WithOnPlay(fn func(id string, d time.Duration)) ControllerOption {
	return func(c *Controller) { c.onPlay = fn }
}

// NewController creates a controller for sink.
func NewController(sink audioio.Sink, logger *slog.Logger, opts ...ControllerOption) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		sink:   sink,
		logger: logger.With("component", "playback.Controller"),
		chunk:  DefaultChunk,
		lead:   DefaultLead,
		paced:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Play writes buf to the sink and blocks until it has been heard or h is
// cancelled. A nil handle gets a fresh one.
//
// Cancellation through h yields StatusSkipped and a nil error. A cancelled
// ctx yields StatusSkipped and ctx.Err(). A device failure yields
// StatusSkipped and the device error.
func (c *Controller) Play(ctx context.Context, buf audioio.Buffer, h *Handle) (Status, error) {
	if h == nil {
		h = NewHandle()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if h.Cancelled() {
		c.skipped.Add(1)
		return StatusSkipped, nil
	}
	if buf.IsEmpty() {
		c.completed.Add(1)
		return StatusCompleted, nil
	}

	cfg := c.sink.Config()
	buf = buf.Convert(cfg.SampleRate, cfg.Channels)

	// Cancelling the handle cancels playCtx, which interrupts a blocked
	// write or drain inside the sink.
	playCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.Done():
			cancel()
		case <-playCtx.Done():
		}
	}()

	if err := c.sink.Start(playCtx); err != nil {
		return StatusSkipped, fmt.Errorf("playback: start sink: %w", err)
	}

	c.playing.Store(true)
	defer c.playing.Store(false)
	if c.onPlay != nil {
		c.onPlay(h.ID, buf.Duration())
	}

	status, err := c.write(playCtx, buf, h)
	if status == StatusSkipped {
		if cerr := c.sink.Clear(); cerr != nil {
			c.logger.Debug("clear after skip", "error", cerr)
		}
		c.skipped.Add(1)
		if err == nil && !h.Cancelled() {
			err = ctx.Err()
		}
		return StatusSkipped, err
	}
	c.completed.Add(1)
	return StatusCompleted, nil
}

func (c *Controller) write(ctx context.Context, buf audioio.Buffer, h *Handle) (Status, error) {
	rate := buf.SampleRate()
	per := int(int64(rate) * int64(c.chunk) / int64(time.Second))
	if per <= 0 {
		per = 1
	}
	frames := buf.Frames()
	start := time.Now()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for off := 0; off < frames; off += per {
		if h.Cancelled() || ctx.Err() != nil {
			c.logger.Debug("playback skipped", "handle", h.ID, "at", frameTime(off, rate))
			return StatusSkipped, nil
		}

		if err := c.sink.Write(ctx, buf.Chunk(off, off+per)); err != nil {
			if h.Cancelled() || ctx.Err() != nil {
				return StatusSkipped, nil
			}
			return StatusSkipped, fmt.Errorf("playback: write: %w", err)
		}

		if !c.paced {
			continue
		}
		ahead := frameTime(off+per, rate) - time.Since(start)
		if wait := ahead - c.lead; wait > 0 {
			if timer == nil {
				timer = time.NewTimer(wait)
			} else {
				timer.Reset(wait)
			}
			select {
			case <-timer.C:
			case <-ctx.Done():
				return StatusSkipped, nil
			}
		}
	}

	if err := c.sink.Flush(ctx); err != nil {
		if h.Cancelled() || ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return StatusSkipped, nil
		}
		return StatusSkipped, fmt.Errorf("playback: drain: %w", err)
	}
	return StatusCompleted, nil
}

func frameTime(frames, rate int) time.Duration {
	return time.Duration(int64(frames) * int64(time.Second) / int64(rate))
}

// Playing reports whether a buffer is being played.
func (c *Controller) Playing() bool {
	return c.playing.Load()
}

// ControllerStats counts playback outcomes.
type ControllerStats struct {
	Completed int64 `json:"completed"`
	Skipped   int64 `json:"skipped"`
}

// Stats returns playback counters.
func (c *Controller) Stats() ControllerStats {
	return ControllerStats{Completed: c.completed.Load(), Skipped: c.skipped.Load()}
}
