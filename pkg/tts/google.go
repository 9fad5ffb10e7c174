package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/voicenav/internal/gcloud"
	"github.com/teslashibe/voicenav/pkg/audioio"
)

const providerGoogle = "google"

// Google implements Provider with Cloud Text-to-Speech.
type Google struct {
	config *Config
	svc    *texttospeech.Service
	logger *slog.Logger
}

// NewGoogle creates a Cloud Text-to-Speech provider. Without an API key it
// uses Application Default Credentials.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Language = "en-US"
	cfg.Apply(opts...)

	copts, err := gcloud.ClientOptions(ctx, gcloud.Credentials{
		APIKey:     cfg.APIKey,
		Endpoint:   cfg.BaseURL,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	svc, err := texttospeech.NewService(ctx, copts...)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	return &Google{
		config: cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Name returns "google".
func (g *Google) Name() string { return providerGoogle }

// Synthesize requests LINEAR16 at the configured rate.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerGoogle, ErrEmptyText)
	}
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}
	start := time.Now()
	rate := SampleRateFromEncoding(g.config.OutputFormat)

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.config.Language,
			Name:         g.config.VoiceID,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding:   "LINEAR16",
			SampleRateHertz: int64(rate),
			SpeakingRate:    g.config.Speed,
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok {
			err = &APIError{StatusCode: gerr.Code, Message: gerr.Message}
		}
		return nil, WrapError(providerGoogle, err)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}
	buf, err := decodeLinear16(raw, rate)
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}
	if buf.IsEmpty() {
		return nil, WrapError(providerGoogle, ErrEmptyAudio)
	}

	latency := time.Since(start)
	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"duration", buf.Duration(),
		"latency_ms", latency.Milliseconds(),
	)
	return newResult(providerGoogle, text, buf, g.config.OutputFormat, latency), nil
}

// decodeLinear16 accepts LINEAR16 with or without a WAV header.
func decodeLinear16(raw []byte, rate int) (audioio.Buffer, error) {
	if bytes.HasPrefix(raw, []byte("RIFF")) {
		return audioio.DecodeWAV(raw)
	}
	return audioio.BufferFromBytes(raw, rate, 1), nil
}

// Health lists voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	_, err := g.svc.Voices.List().LanguageCode(g.config.Language).Context(ctx).Do()
	return WrapError(providerGoogle, err)
}

// Close is a no-op; the service holds no resources of its own.
func (g *Google) Close() error { return nil }

var _ Provider = (*Google)(nil)
