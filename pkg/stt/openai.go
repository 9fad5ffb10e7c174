package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/voicenav/internal/httpc"
	"github.com/teslashibe/voicenav/pkg/audioio"
)

// OpenAI transcribes with the Whisper API.
type OpenAI struct {
	config *Config
	client *openai.Client
	logger *slog.Logger
}

// NewOpenAI creates a Whisper provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Model = openai.Whisper1
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = httpc.OrDefault(cfg.HTTPClient)

	return &OpenAI{
		config: cfg,
		client: openai.NewClientWithConfig(oc),
		logger: cfg.Logger.With("component", "stt.openai"),
	}, nil
}

// Name returns "openai".
func (p *OpenAI) Name() string { return "openai" }

// Transcribe uploads buf as a WAV file.
func (p *OpenAI) Transcribe(ctx context.Context, buf audioio.Buffer) (string, error) {
	if err := checkAudio(p.Name(), buf); err != nil {
		return "", err
	}

	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.config.Model,
		FilePath: "speech.wav",
		Reader:   bytes.NewReader(audioio.EncodeWAV(buf)),
		Language: p.config.Language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", wrap(p.Name(), statusOf(err), err)
	}

	text := strings.TrimSpace(resp.Text)
	p.logger.Debug("transcribed",
		"audio", buf.Duration(),
		"latency", time.Since(start).Round(time.Millisecond),
		"chars", len(text),
	)
	if text == "" {
		return "", wrap(p.Name(), 0, ErrNoSpeech)
	}
	return text, nil
}

func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// String implements fmt.Stringer for logs.
func (p *OpenAI) String() string {
	return fmt.Sprintf("openai(%s)", p.config.Model)
}

var _ Provider = (*OpenAI)(nil)
