// Package stt turns recorded speech into text.
//
// Providers share one interface so the voice layer never branches on which
// vendor is configured:
//
//	provider, _ := stt.NewOpenAI(stt.WithAPIKey(key))
//	text, err := provider.Transcribe(ctx, buf)
//
// Every failure is returned as a *TranscriptionError. Callers treat an empty
// transcript as "nothing was said".
package stt

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/voicenav/pkg/audioio"
)

// Provider converts audio to text.
type Provider interface {
	// Transcribe returns the spoken text in buf, trimmed of surrounding space.
	Transcribe(ctx context.Context, buf audioio.Buffer) (string, error)

	// Name identifies the provider in logs and errors.
	Name() string
}

// Config holds STT provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	APIKey  string
	BaseURL string

	// Model is provider specific, e.g. "whisper-1".
	Model string

	// Language is a BCP-47 hint such as "en" or "en-US". Empty lets the
	// provider detect it where supported.
	Language string

	// Command is the argv of a local transcriber for the Command provider.
	// The literal {file} is replaced with the path of a WAV file.
	Command []string

	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Option is a functional option for configuring STT providers.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithLanguage sets the language hint.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithCommand sets the local transcriber argv.
func WithCommand(argv ...string) Option {
	return func(c *Config) { c.Command = argv }
}

// WithTimeout bounds a single transcription.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// DefaultConfig returns defaults shared by all providers.
func DefaultConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
		Logger:  slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Validate checks that an API key is present.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// minSpeech is the shortest buffer worth sending to a provider.
const minSpeech = 100 * time.Millisecond

// checkAudio rejects buffers too short to contain a word.
func checkAudio(provider string, buf audioio.Buffer) error {
	if buf.IsEmpty() || buf.Duration() < minSpeech {
		return &TranscriptionError{Provider: provider, Err: ErrEmptyAudio}
	}
	return nil
}
