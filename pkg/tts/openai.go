package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/voicenav/internal/httpc"
	"github.com/teslashibe/voicenav/pkg/audioio"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"

	// openAIPCMRate is fixed by the API for response_format=pcm.
	openAIPCMRate = 24000
)

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"   // Neutral voice
	VoiceEcho    = "echo"    // Male voice
	VoiceFable   = "fable"   // British accent
	VoiceOnyx    = "onyx"    // Deep male voice
	VoiceNova    = "nova"    // Female voice
	VoiceShimmer = "shimmer" // Soft female voice
)

// OpenAI model options
const (
	ModelTTS1   = "tts-1"    // Standard quality, faster
	ModelTTS1HD = "tts-1-hd" // Higher quality, slower
)

// OpenAI implements Provider for OpenAI TTS.
type OpenAI struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
	poster  *jsonPoster
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceAlloy
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = VoiceAlloy
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}

	o := &OpenAI{
		config:  cfg,
		client:  httpc.OrDefault(cfg.HTTPClient),
		logger:  cfg.Logger.With("component", "tts.openai"),
		baseURL: baseURL,
	}
	o.poster = &jsonPoster{
		client: o.client,
		config: cfg,
		logger: o.logger,
		headers: func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
		},
		parseError: parseOpenAIError,
	}
	return o, nil
}

// Name returns "openai".
func (o *OpenAI) Name() string { return providerOpenAI }

// Synthesize requests raw 24 kHz PCM.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, WrapError(providerOpenAI, ErrEmptyText)
	}
	start := time.Now()

	payload := map[string]any{
		"model":           o.config.ModelID,
		"voice":           o.config.VoiceID,
		"input":           text,
		"response_format": "pcm",
	}
	if o.config.Speed > 0 && o.config.Speed != 1.0 {
		payload["speed"] = o.config.Speed
	}

	audio, err := o.poster.post(ctx, o.baseURL+"/audio/speech", payload)
	if err != nil {
		return nil, WrapError(providerOpenAI, err)
	}
	if len(audio) < 2 {
		return nil, WrapError(providerOpenAI, ErrEmptyAudio)
	}

	buf := audioio.BufferFromBytes(audio, openAIPCMRate, 1)
	latency := time.Since(start)

	o.logger.Debug("synthesized audio",
		"chars", len(text),
		"duration", buf.Duration(),
		"latency_ms", latency.Milliseconds(),
		"voice", o.config.VoiceID,
	)

	return newResult(providerOpenAI, text, buf, EncodingPCM24, latency), nil
}

// Health checks API connectivity.
func (o *OpenAI) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models", nil)
	if err != nil {
		return WrapError(providerOpenAI, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return WrapError(providerOpenAI, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return WrapError(providerOpenAI, &APIError{StatusCode: resp.StatusCode, Message: resp.Status})
	}
	return nil
}

// Close releases idle connections.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// VoiceID returns the configured voice.
func (o *OpenAI) VoiceID() string {
	return o.config.VoiceID
}

func parseOpenAIError(status int, body []byte) *APIError {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	json.Unmarshal(body, &errResp)

	code := ""
	if s, ok := errResp.Error.Code.(string); ok {
		code = s
	}
	return &APIError{
		StatusCode: status,
		Message:    errorMessage(errResp.Error.Message, body),
		Code:       code,
	}
}

// Verify OpenAI implements Provider at compile time.
var _ Provider = (*OpenAI)(nil)
