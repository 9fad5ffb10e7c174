package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/teslashibe/voicenav/pkg/audioio"
	"github.com/teslashibe/voicenav/pkg/capture"
	"github.com/teslashibe/voicenav/pkg/keys"
	"github.com/teslashibe/voicenav/pkg/playback"
	"github.com/teslashibe/voicenav/pkg/stt"
	"github.com/teslashibe/voicenav/pkg/tts"
)

// DefaultMinRecording is the shortest recording worth transcribing.
const DefaultMinRecording = 250 * time.Millisecond

// Recording cues: a higher tone when the microphone opens, a lower one
// when it closes.
const (
	StartCueHz = 880
	StopCueHz  = 660
	CueLength  = 80 * time.Millisecond
	cueLevel   = 0.2
)

// Configuration errors.
var (
	ErrNoTranscriber = errors.New("voice: transcriber is required")
	ErrNoSynthesizer = errors.New("voice: synthesizer is required")
	ErrNoRecorder    = errors.New("voice: recorder is required")
	ErrNoPlayer      = errors.New("voice: player is required")
	ErrNoKeys        = errors.New("voice: key source is required")
)

// Synthesizer is the part of tts.Provider used here.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*tts.AudioResult, error)
}

// Recorder is the part of capture.Recorder used here.
type Recorder interface {
	StartRecording(ctx context.Context) (*capture.Session, error)
	StopRecording() (audioio.Buffer, error)
	Cancel()
}

// Player is the part of playback.Controller used here.
type Player interface {
	Play(ctx context.Context, buf audioio.Buffer, h *playback.Handle) (playback.Status, error)
}

// Config wires a VoiceIO. Every collaborator is injected; nothing is
// looked up from the environment.
type Config struct {
	Transcriber stt.Provider
	Synthesizer Synthesizer
	Recorder    Recorder
	Player      Player
	Keys        keys.Source

	// Cache holds synthesized audio. Nil creates an unbounded cache.
	Cache *playback.Cache

	// Output receives text that could not be spoken, and notices about
	// failed transcriptions. Default: os.Stdout.
	Output io.Writer

	// MinRecording drops recordings shorter than this without
	// calling the transcriber. Default: DefaultMinRecording.
	MinRecording time.Duration

	// TalkQueuesBehindPlayback lets the current utterance finish when
	// the talk key is pressed. By default a talk press cancels it, or
	// the next one when synthesis is still running. Either way the
	// press is queued for the next Listen.
	TalkQueuesBehindPlayback bool

	// DisableCues turns off the short tones played through Player when
	// a recording starts and stops.
	DisableCues bool

	Logger *slog.Logger
}

// DefaultConfig returns a Config with defaults set and no collaborators.
func DefaultConfig() Config {
	return Config{
		MinRecording: DefaultMinRecording,
	}
}

// Validate checks that every collaborator is present.
func (c *Config) Validate() error {
	switch {
	case c.Transcriber == nil:
		return ErrNoTranscriber
	case c.Synthesizer == nil:
		return ErrNoSynthesizer
	case c.Recorder == nil:
		return ErrNoRecorder
	case c.Player == nil:
		return ErrNoPlayer
	case c.Keys == nil:
		return ErrNoKeys
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Cache == nil {
		c.Cache = playback.NewCache(0)
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	if c.MinRecording <= 0 {
		c.MinRecording = DefaultMinRecording
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
