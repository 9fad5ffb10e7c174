package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/teslashibe/voicenav/pkg/audioio"
	"github.com/teslashibe/voicenav/pkg/keys"
	"github.com/teslashibe/voicenav/pkg/playback"
	"github.com/teslashibe/voicenav/pkg/stt"
	"github.com/teslashibe/voicenav/pkg/tts"
)

// Lifecycle errors.
var (
	ErrNotRunning     = errors.New("voice: key monitor not running")
	ErrAlreadyRunning = errors.New("voice: key monitor already running")
)

// VoiceIO is the voice front end of the assistant.
type VoiceIO struct {
	cfg     Config
	logger  *slog.Logger
	cache   *playback.Cache
	metrics *MetricsCollector
	group   singleflight.Group

	// Talk transitions in key order, written by the monitor and read
	// only by Listen.
	talk    chan bool
	skipRec chan struct{}

	// Guarded by listenMu. discard is set when a recording is cancelled
	// while the key is still down, so that hold is not reused.
	listenMu sync.Mutex
	talkHeld bool
	discard  bool

	speakMu sync.Mutex
	outMu   sync.Mutex

	startCue audioio.Buffer
	stopCue  audioio.Buffer

	// Guarded by mu. interrupt is a talk press that arrived before
	// Speak had a handle to cancel.
	mu        sync.Mutex
	state     State
	handle    *playback.Handle
	interrupt bool
	observers []Observer

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a VoiceIO from cfg.
func New(cfg Config) (*VoiceIO, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	v := &VoiceIO{
		cfg:     cfg,
		logger:  cfg.Logger.With("component", "voice.VoiceIO"),
		cache:   cfg.Cache,
		metrics: NewMetricsCollector(),
		talk:    make(chan bool, 32),
		skipRec: make(chan struct{}, 1),
		state:   State{Input: InputIdle, Output: OutputIdle},
	}
	if !cfg.DisableCues {
		v.startCue = audioio.Tone(StartCueHz, CueLength, audioio.PlaybackSampleRate, 1, cueLevel)
		v.stopCue = audioio.Tone(StopCueHz, CueLength, audioio.PlaybackSampleRate, 1, cueLevel)
	}
	return v, nil
}

// Run starts the key source and the goroutine that watches it. It
// returns once monitoring has begun.
func (v *VoiceIO) Run(ctx context.Context) error {
	v.runMu.Lock()
	defer v.runMu.Unlock()

	if v.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := v.cfg.Keys.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("voice: start key monitor: %w", err)
	}

	done := make(chan struct{})
	v.cancel = cancel
	v.done = done
	go v.monitor(ctx, v.cfg.Keys.Events(), done)

	v.logger.Debug("key monitor started")
	return nil
}

func (v *VoiceIO) monitor(ctx context.Context, events <-chan keys.Event, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				v.logger.Debug("key source closed")
				return
			}
			v.handleKey(ev)
		}
	}
}

func (v *VoiceIO) handleKey(ev keys.Event) {
	switch ev.Key {
	case keys.KeyTalk:
		if ev.Pressed && !v.cfg.TalkQueuesBehindPlayback {
			v.interruptSpeech()
		}
		v.sendTalk(ev.Pressed)
	case keys.KeySkip:
		if ev.Pressed {
			v.Skip()
		}
	}
}

// interruptSpeech cancels the current playback. While Speak is still
// producing audio it marks the press so the playback is cancelled as soon
// as it starts.
func (v *VoiceIO) interruptSpeech() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.handle != nil && !v.handle.Cancelled() {
		v.handle.Cancel()
		v.logger.Debug("talk key interrupted playback")
		return
	}
	switch v.state.Output {
	case OutputSynthesizing, OutputCacheHit:
		v.interrupt = true
		v.logger.Debug("talk key will interrupt pending playback")
	}
}

// sendTalk never blocks the monitor. When Listen has fallen far behind
// the oldest transition is dropped; only the latest one matters then.
func (v *VoiceIO) sendTalk(pressed bool) {
	for {
		select {
		case v.talk <- pressed:
			return
		default:
		}
		select {
		case <-v.talk:
		default:
		}
	}
}

func (v *VoiceIO) monitorDone() <-chan struct{} {
	v.runMu.Lock()
	defer v.runMu.Unlock()
	return v.done
}

// Listen waits for the talk key, records until it is released, and
// returns the trimmed transcript.
//
// An empty string means there is no instruction: the recording was
// cancelled with the skip key, was too short, held no speech, or the
// transcriber failed. Transcriber failures are logged and noted on
// Output. An error is returned only for a cancelled ctx, a stopped key
// monitor, or a recorder failure.
func (v *VoiceIO) Listen(ctx context.Context) (string, error) {
	done := v.monitorDone()
	if done == nil {
		return "", ErrNotRunning
	}

	v.listenMu.Lock()
	defer v.listenMu.Unlock()

	select {
	case <-done:
		return "", ErrNotRunning
	default:
	}

	v.drainTalk()
	select {
	case <-v.skipRec:
	default:
	}

	for !v.talkHeld || v.discard {
		select {
		case p := <-v.talk:
			v.setTalk(p)
		case <-done:
			return "", ErrNotRunning
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	sess, err := v.cfg.Recorder.StartRecording(ctx)
	if err != nil {
		return "", err
	}
	v.setInput(InputListening)
	defer v.setInput(InputIdle)
	v.logger.Debug("listening", "session", sess.ID)
	started := v.cue(ctx, v.startCue, nil)

	for v.talkHeld {
		select {
		case p := <-v.talk:
			v.setTalk(p)
		case <-v.skipRec:
			v.cfg.Recorder.Cancel()
			v.discard = v.talkHeld
			v.metrics.MarkCancelled()
			v.logger.Debug("recording cancelled", "session", sess.ID)
			return "", nil
		case <-done:
			v.cfg.Recorder.Cancel()
			return "", ErrNotRunning
		case <-ctx.Done():
			v.cfg.Recorder.Cancel()
			return "", ctx.Err()
		}
	}

	buf, err := v.cfg.Recorder.StopRecording()
	v.cue(ctx, v.stopCue, started)
	if err != nil {
		if buf.IsEmpty() {
			return "", err
		}
		v.logger.Warn("microphone failed during recording, using partial audio", "error", err)
	}
	v.metrics.MarkRecording(buf.Duration())

	if buf.Duration() < v.cfg.MinRecording {
		v.metrics.MarkTooShort()
		v.logger.Debug("recording too short", "duration", buf.Duration())
		return "", nil
	}

	v.setInput(InputTranscribing)
	start := time.Now()
	text, err := v.cfg.Transcriber.Transcribe(ctx, buf)
	if errors.Is(err, stt.ErrNoSpeech) {
		text, err = "", nil
	}
	text = strings.TrimSpace(text)
	v.metrics.MarkTranscript(time.Since(start), text, err)

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		v.logger.Warn("transcription failed", "error", err)
		v.printf("[Transcription failed: %v]\n", err)
		return "", nil
	}

	v.logger.Debug("transcribed", "text", text, "latency", time.Since(start).Round(time.Millisecond))
	return text, nil
}

// cue plays buf through the Player without blocking the caller. When after
// is set it waits for that cue first so the two never swap order. Cue
// failures are only logged.
func (v *VoiceIO) cue(ctx context.Context, buf audioio.Buffer, after <-chan struct{}) <-chan struct{} {
	done := make(chan struct{})
	if buf.IsEmpty() {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		if after != nil {
			<-after
		}
		if _, err := v.cfg.Player.Play(ctx, buf, playback.NewHandle()); err != nil {
			v.logger.Debug("recording cue failed", "error", err)
		}
	}()
	return done
}

func (v *VoiceIO) drainTalk() {
	for {
		select {
		case p := <-v.talk:
			v.setTalk(p)
		default:
			return
		}
	}
}

func (v *VoiceIO) setTalk(pressed bool) {
	v.talkHeld = pressed
	if !pressed {
		v.discard = false
	}
}

// Speak plays text, from the cache when it has been spoken before.
// Blank text is ignored. When no audio can be produced the text is
// written to Output and OutcomePrinted is returned with a nil error; an
// error is returned only when ctx is cancelled.
func (v *VoiceIO) Speak(ctx context.Context, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return OutcomeCompleted, nil
	}

	v.speakMu.Lock()
	defer v.speakMu.Unlock()
	defer v.clearInterrupt()
	defer v.setOutput(OutputIdle)

	buf, hit := v.cache.Get(text)
	if hit {
		v.setOutput(OutputCacheHit)
		v.logger.Debug("cache hit", "text", text)
	} else {
		v.setOutput(OutputSynthesizing)
		var err error
		buf, err = v.synthesize(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return OutcomeSkipped, ctx.Err()
			}
			v.logger.Warn("synthesis failed, printing instead", "error", err)
			v.println(text)
			v.metrics.MarkSpeak(OutcomePrinted, false)
			return OutcomePrinted, nil
		}
	}

	h := playback.NewHandle()
	v.mu.Lock()
	v.handle = h
	if v.interrupt {
		v.interrupt = false
		h.Cancel()
	}
	v.mu.Unlock()
	v.setOutput(OutputPlaying)

	status, err := v.cfg.Player.Play(ctx, buf, h)

	v.mu.Lock()
	if v.handle == h {
		v.handle = nil
	}
	v.mu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return OutcomeSkipped, ctx.Err()
		}
		v.logger.Warn("playback failed, printing instead", "error", err)
		v.println(text)
		v.metrics.MarkSpeak(OutcomePrinted, hit)
		return OutcomePrinted, nil
	}

	outcome := OutcomeCompleted
	if status == playback.StatusSkipped {
		outcome = OutcomeSkipped
		v.logger.Debug("playback skipped", "handle", h.ID)
	}
	v.metrics.MarkSpeak(outcome, hit)
	return outcome, nil
}

// synthesize calls the provider and caches the result before returning.
// Concurrent calls for the same text share one provider call.
func (v *VoiceIO) synthesize(ctx context.Context, text string) (audioio.Buffer, error) {
	out, err, _ := v.group.Do(text, func() (any, error) {
		if e, ok := v.cache.Entry(text); ok {
			return e.Buffer, nil
		}

		start := time.Now()
		res, err := v.cfg.Synthesizer.Synthesize(ctx, text)
		var buf audioio.Buffer
		if err == nil {
			buf = res.Buffer()
			if buf.IsEmpty() {
				err = fmt.Errorf("voice: synthesis returned no audio: %w", tts.ErrEmptyAudio)
			}
		}
		v.metrics.MarkSynthesis(time.Since(start), err)
		if err != nil {
			return nil, err
		}

		v.cache.Put(text, buf)
		v.logger.Debug("synthesized", "text", text, "audio", buf.Duration(), "latency", time.Since(start).Round(time.Millisecond))
		return buf, nil
	})
	if err != nil {
		return audioio.Buffer{}, err
	}
	return out.(audioio.Buffer), nil
}

// Prefetch synthesizes texts into the cache without playing them.
// Texts already cached are skipped.
func (v *VoiceIO) Prefetch(ctx context.Context, texts ...string) error {
	var errs []error
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if _, ok := v.cache.Entry(text); ok {
			continue
		}
		if _, err := v.synthesize(ctx, text); err != nil {
			errs = append(errs, fmt.Errorf("prefetch %q: %w", text, err))
		}
	}
	return errors.Join(errs...)
}

// Skip cancels the current playback. When nothing is playing it cancels
// an active recording instead. It reports whether anything was cancelled.
func (v *VoiceIO) Skip() bool {
	if v.cancelPlayback() {
		v.logger.Debug("skip: playback cancelled")
		return true
	}

	v.mu.Lock()
	listening := v.state.Input == InputListening
	v.mu.Unlock()
	if listening {
		select {
		case v.skipRec <- struct{}{}:
		default:
		}
		return true
	}
	return false
}

// clearInterrupt runs after the output state is idle again, so a press
// seen during a failed synthesis cannot leak into the next Speak.
func (v *VoiceIO) clearInterrupt() {
	v.mu.Lock()
	v.interrupt = false
	v.mu.Unlock()
}

func (v *VoiceIO) cancelPlayback() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.handle == nil || v.handle.Cancelled() {
		return false
	}
	v.handle.Cancel()
	return true
}

// State returns the current input and output states.
func (v *VoiceIO) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Observe registers fn for state changes.
func (v *VoiceIO) Observe(fn Observer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, fn)
}

func (v *VoiceIO) setInput(s InputState) {
	v.mu.Lock()
	if v.state.Input == s {
		v.mu.Unlock()
		return
	}
	v.state.Input = s
	v.notifyLocked()
}

func (v *VoiceIO) setOutput(s OutputState) {
	v.mu.Lock()
	if v.state.Output == s {
		v.mu.Unlock()
		return
	}
	v.state.Output = s
	v.notifyLocked()
}

// notifyLocked releases v.mu before calling observers.
func (v *VoiceIO) notifyLocked() {
	st := v.state
	obs := append([]Observer(nil), v.observers...)
	v.mu.Unlock()

	v.logger.Debug("state", "input", st.Input, "output", st.Output)
	for _, fn := range obs {
		fn(st)
	}
}

// Cache returns the playback cache.
func (v *VoiceIO) Cache() *playback.Cache {
	return v.cache
}

// Metrics returns a snapshot of the counters.
func (v *VoiceIO) Metrics() Metrics {
	return v.metrics.Snapshot()
}

func (v *VoiceIO) println(text string) {
	v.outMu.Lock()
	defer v.outMu.Unlock()
	fmt.Fprintln(v.cfg.Output, text)
}

func (v *VoiceIO) printf(format string, args ...any) {
	v.outMu.Lock()
	defer v.outMu.Unlock()
	fmt.Fprintf(v.cfg.Output, format, args...)
}

// Close stops the key monitor, cancels playback, and closes the key source.
func (v *VoiceIO) Close() error {
	v.cancelPlayback()

	v.runMu.Lock()
	cancel, done := v.cancel, v.done
	v.runMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return v.cfg.Keys.Close()
}
