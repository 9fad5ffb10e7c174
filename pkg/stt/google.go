package stt

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/speech/v1"

	"github.com/teslashibe/voicenav/internal/gcloud"
	"github.com/teslashibe/voicenav/pkg/audioio"
)

// Google transcribes with Cloud Speech-to-Text (synchronous recognize).
type Google struct {
	config *Config
	svc    *speech.Service
	logger *slog.Logger
}

// NewGoogle creates a Cloud Speech-to-Text provider. Without an API key it
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
		return nil, err
	}

	svc, err := speech.NewService(ctx, copts...)
	if err != nil {
		return nil, wrap("google", 0, err)
	}

	return &Google{
		config: cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "stt.google"),
	}, nil
}

// Name returns "google".
func (p *Google) Name() string { return "google" }

// Transcribe sends buf as 16 kHz mono LINEAR16.
func (p *Google) Transcribe(ctx context.Context, buf audioio.Buffer) (string, error) {
	if err := checkAudio(p.Name(), buf); err != nil {
		return "", err
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	mono := buf.Convert(audioio.CaptureSampleRate, 1)
	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            int64(mono.SampleRate()),
			LanguageCode:               p.config.Language,
			Model:                      p.config.Model,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(mono.Bytes()),
		},
	}

	resp, err := p.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		status := 0
		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			status = gerr.Code
		}
		return "", wrap(p.Name(), status, err)
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) > 0 {
			parts = append(parts, strings.TrimSpace(r.Alternatives[0].Transcript))
		}
	}
	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return "", wrap(p.Name(), 0, ErrNoSpeech)
	}

	p.logger.Debug("transcribed", "audio", buf.Duration(), "results", len(resp.Results))
	return text, nil
}

var _ Provider = (*Google)(nil)
