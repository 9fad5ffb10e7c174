package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/teslashibe/voicenav/internal/httpc"
	"github.com/teslashibe/voicenav/pkg/audioio"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	// ModelTurboV2_5 is the fastest English model.
	ModelTurboV2_5 = "eleven_turbo_v2_5"

	// ModelFlashV2_5 is the fastest multilingual model.
	ModelFlashV2_5 = "eleven_flash_v2_5"

	// ModelMultilingualV2 is the highest quality multilingual model.
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// ElevenLabsVoices maps preset names to voice IDs.
var ElevenLabsVoices = map[string]string{
	"rachel":    "21m00Tcm4TlvDq8ikWAM", // American female, calm
	"charlotte": "XB0fDUnXU5powFXDhCwa", // British female, warm
	"aria":      "9BWtsMINqrJLrRacOk9x", // American female, expressive
	"sarah":     "EXAVITQu4vr4xnSDxMaL", // American female, soft
	"josh":      "TxGEqnHWrfWFTfGW9XjX", // American male, deep
	"adam":      "pNInz6obpgDQGcFmaJgB", // American male, deep
}

// DefaultElevenLabsVoice is used when no voice is configured.
const DefaultElevenLabsVoice = "rachel"

// ResolveElevenLabsVoice returns the voice ID for a preset name,
// or the input unchanged if it's already a voice ID.
func ResolveElevenLabsVoice(name string) string {
	if id, ok := ElevenLabsVoices[name]; ok {
		return id
	}
	return name
}

// ElevenLabs implements Provider for ElevenLabs TTS.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
	poster  *jsonPoster
}

// NewElevenLabs creates a new ElevenLabs TTS provider.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTurboV2_5
	cfg.VoiceID = DefaultElevenLabsVoice
	cfg.Apply(opts...)

	if err := cfg.ValidateWithVoice(); err != nil {
		return nil, err
	}
	cfg.VoiceID = ResolveElevenLabsVoice(cfg.VoiceID)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}

	e := &ElevenLabs{
		config:  cfg,
		client:  httpc.OrDefault(cfg.HTTPClient),
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: baseURL,
	}
	e.poster = &jsonPoster{
		client: e.client,
		config: cfg,
		logger: e.logger,
		headers: func(req *http.Request) {
			req.Header.Set("xi-api-key", cfg.APIKey)
			req.Header.Set("Accept", "audio/pcm")
		},
		parseError: parseElevenLabsError,
	}
	return e, nil
}

// Name returns "elevenlabs".
func (e *ElevenLabs) Name() string { return providerElevenLabs }

// Synthesize requests raw PCM at the configured rate.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerElevenLabs, ErrEmptyText)
	}
	start := time.Now()

	u := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		e.baseURL, url.PathEscape(e.config.VoiceID), url.QueryEscape(string(e.config.OutputFormat)))

	audio, err := e.poster.post(ctx, u, e.buildPayload(text))
	if err != nil {
		return nil, WrapError(providerElevenLabs, err)
	}
	if len(audio) < 2 {
		return nil, WrapError(providerElevenLabs, ErrEmptyAudio)
	}

	buf := audioio.BufferFromBytes(audio, SampleRateFromEncoding(e.config.OutputFormat), 1)
	latency := time.Since(start)

	e.logger.Debug("synthesized audio",
		"chars", len(text),
		"duration", buf.Duration(),
		"latency_ms", latency.Milliseconds(),
		"model", e.config.ModelID,
	)

	return newResult(providerElevenLabs, text, buf, e.config.OutputFormat, latency), nil
}

// Health checks API connectivity and API key validity.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/user", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WrapError(providerElevenLabs, &APIError{StatusCode: resp.StatusCode, Message: resp.Status})
	}
	return nil
}

// Close releases idle connections.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// VoiceID returns the resolved voice ID.
func (e *ElevenLabs) VoiceID() string {
	return e.config.VoiceID
}

func (e *ElevenLabs) buildPayload(text string) map[string]any {
	return map[string]any{
		"text":     text,
		"model_id": e.config.ModelID,
		"voice_settings": map[string]any{
			"stability":         e.config.VoiceSettings.Stability,
			"similarity_boost":  e.config.VoiceSettings.SimilarityBoost,
			"style":             e.config.VoiceSettings.Style,
			"use_speaker_boost": e.config.VoiceSettings.SpeakerBoost,
		},
	}
}

func parseElevenLabsError(status int, body []byte) *APIError {
	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}
	json.Unmarshal(body, &errResp)

	return &APIError{
		StatusCode: status,
		Message:    errorMessage(errResp.Detail.Message, body),
		Code:       errResp.Detail.Status,
	}
}

// Verify ElevenLabs implements Provider at compile time.
var _ Provider = (*ElevenLabs)(nil)
