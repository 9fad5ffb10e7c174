// Package capture records microphone audio for the span of a push-to-talk gesture.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/voicenav/pkg/audioio"
)

var (
	// ErrAlreadyRecording is returned by StartRecording while a session is active.
	ErrAlreadyRecording = errors.New("capture: already recording")

	// ErrNoActiveSession is returned by StopRecording when nothing is recording.
	ErrNoActiveSession = errors.New("capture: no active recording session")
)

// Session is one key-hold worth of audio.
type Session struct {
	ID        string
	StartedAt time.Time

	mu     sync.Mutex
	chunks []audioio.AudioChunk
	frames int
	active atomic.Bool
	level  atomic.Uint64
	done   chan struct{}
}

// Active reports whether the session is still recording.
func (s *Session) Active() bool {
	return s.active.Load()
}

// Frames returns the number of frames captured so far.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Level returns the RMS level of the most recent chunk, in [0, 1].
func (s *Session) Level() float64 {
	return math.Float64frombits(s.level.Load())
}

func (s *Session) add(c audioio.AudioChunk) {
	s.mu.Lock()
	s.chunks = append(s.chunks, c)
	if c.Channels > 0 {
		s.frames += len(c.Samples) / c.Channels
	}
	s.mu.Unlock()
	s.level.Store(math.Float64bits(audioio.Level(c.Samples)))
}

// Recorder owns the microphone and hands out at most one Session at a time.
type Recorder struct {
	src    audioio.Source
	logger *slog.Logger

	// OnChunk, if set, sees every captured chunk. It runs on the
	// collector goroutine and must not block.
	OnChunk func(audioio.AudioChunk)

	mu      sync.Mutex
	current *Session
}

// NewRecorder creates a recorder reading from src.
func NewRecorder(src audioio.Source, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		src:    src,
		logger: logger.With("component", "capture.Recorder"),
	}
}

// StartRecording opens the microphone and begins buffering frames.
func (r *Recorder) StartRecording(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return nil, ErrAlreadyRecording
	}

	if err := r.src.Start(ctx); err != nil {
		return nil, fmt.Errorf("capture: start microphone: %w", err)
	}

	s := &Session{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		done:      make(chan struct{}),
	}
	s.active.Store(true)
	r.current = s

	go r.collect(s, r.src.Stream())

	r.logger.Debug("recording started", "session", s.ID)
	return s, nil
}

func (r *Recorder) collect(s *Session, stream <-chan audioio.AudioChunk) {
	defer close(s.done)
	for chunk := range stream {
		s.add(chunk)
		if r.OnChunk != nil {
			r.OnChunk(chunk)
		}
	}
}

// StopRecording closes the microphone and returns the captured audio.
// If the device failed mid-recording, the audio captured before the
// failure is returned together with the error.
func (r *Recorder) StopRecording() (audioio.Buffer, error) {
	s, err := r.detach()
	if err != nil {
		return audioio.Buffer{}, err
	}

	stopErr := r.src.Stop()
	<-s.done

	cfg := r.src.Config()
	s.mu.Lock()
	buf := audioio.Concat(s.chunks, cfg.SampleRate, cfg.Channels)
	s.chunks = nil
	s.mu.Unlock()

	r.logger.Debug("recording stopped",
		"session", s.ID,
		"duration", buf.Duration(),
		"held", time.Since(s.StartedAt).Round(time.Millisecond),
	)

	if stopErr != nil {
		return buf, fmt.Errorf("capture: microphone failed during recording: %w", stopErr)
	}
	return buf, nil
}

// Cancel stops the active session and discards its audio.
// It is a no-op when nothing is recording.
func (r *Recorder) Cancel() {
	s, err := r.detach()
	if err != nil {
		return
	}
	if err := r.src.Stop(); err != nil {
		r.logger.Debug("microphone error on cancel", "error", err)
	}
	<-s.done
	r.logger.Debug("recording cancelled", "session", s.ID)
}

func (r *Recorder) detach() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.current
	if s == nil {
		return nil, ErrNoActiveSession
	}
	r.current = nil
	s.active.Store(false)
	return s, nil
}

// Current returns the active session, or nil.
func (r *Recorder) Current() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Recording reports whether a session is active.
func (r *Recorder) Recording() bool {
	return r.Current() != nil
}

// Close cancels any session and releases the microphone.
func (r *Recorder) Close() error {
	r.Cancel()
	return r.src.Close()
}
