// Package providers builds speech providers from configuration.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/voicenav/internal/config"
	"github.com/teslashibe/voicenav/internal/httpc"
	"github.com/teslashibe/voicenav/pkg/stt"
	"github.com/teslashibe/voicenav/pkg/tts"
)

// DefaultTimeout bounds a single provider HTTP call.
const DefaultTimeout = 60 * time.Second

// Transcriber returns the speech-to-text provider named by cfg.STTProvider.
// A nil client gets one with DefaultTimeout.
func Transcriber(ctx context.Context, cfg config.Config, hc *http.Client, logger *slog.Logger) (stt.Provider, error) {
	if hc == nil {
		hc = httpc.NewClient(DefaultTimeout)
	}
	switch cfg.STTProvider {
	case "openai":
		return stt.NewOpenAI(stt.WithAPIKey(cfg.OpenAIKey), stt.WithHTTPClient(hc), stt.WithLogger(logger))
	case "google":
		// The Google client carries its own auth, so no shared HTTP client.
		return stt.NewGoogle(ctx, stt.WithAPIKey(cfg.GoogleAPIKey), stt.WithLogger(logger))
	case "command":
		return stt.NewCommand(stt.WithCommand(cfg.STTCommand...), stt.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown speech-to-text provider %q", cfg.STTProvider)
	}
}

// Synthesizer returns the text-to-speech provider named by
// cfg.TTSProvider. When the system voice is installed and fallback is
// set, it is chained behind the cloud provider.
func Synthesizer(ctx context.Context, cfg config.Config, hc *http.Client, fallback bool, logger *slog.Logger) (tts.Provider, error) {
	if hc == nil {
		hc = httpc.NewClient(DefaultTimeout)
	}
	var (
		primary tts.Provider
		err     error
	)
	opts := []tts.Option{tts.WithLogger(logger)}
	if cfg.TTSVoice != "" {
		opts = append(opts, tts.WithVoice(cfg.TTSVoice))
	}
	switch cfg.TTSProvider {
	case "openai":
		primary, err = tts.NewOpenAI(append(opts, tts.WithAPIKey(cfg.OpenAIKey), tts.WithHTTPClient(hc))...)
	case "elevenlabs":
		primary, err = tts.NewElevenLabs(append(opts, tts.WithAPIKey(cfg.ElevenLabsKey), tts.WithHTTPClient(hc))...)
	case "google":
		primary, err = tts.NewGoogle(ctx, append(opts, tts.WithAPIKey(cfg.GoogleAPIKey))...)
	case "system":
		return tts.NewSystem(tts.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unknown text-to-speech provider %q", cfg.TTSProvider)
	}
	if err != nil {
		return nil, err
	}
	if !fallback {
		return primary, nil
	}

	system, serr := tts.NewSystem(tts.WithLogger(logger))
	if serr != nil {
		logger.Debug("no system voice fallback", "error", serr)
		return primary, nil
	}
	return tts.NewChain(logger, primary, system)
}
