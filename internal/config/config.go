// Package config loads voicenav settings from the environment.
//
// A .env file in the working directory is read first if present. Values
// already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultStartURL     = "https://bing.com"
	DefaultSTTProvider  = "openai"
	DefaultTTSProvider  = "openai"
	DefaultTalkKey      = "space"
	DefaultSkipKey      = "escape"
	DefaultAudioBackend = "auto"
	DefaultLogLevel     = "info"
)

// Config is everything cmd/voicenav reads from the environment.
type Config struct {
	OpenAIKey     string
	ElevenLabsKey string
	GoogleAPIKey  string

	// TTSVoice is handed to whichever cloud voice is selected.
	TTSVoice string

	STTProvider string // openai, google, command
	TTSProvider string // openai, elevenlabs, google, system
	STTCommand  []string

	AgentURL   string
	AgentToken string
	StartURL   string

	TalkKey      string
	SkipKey      string
	AudioBackend string

	// CacheMaxEntries bounds the playback cache. 0 is unbounded.
	CacheMaxEntries int

	// DashboardPort enables the status dashboard when set.
	DashboardPort string

	LogLevel string
}

// Load reads .env (if any) and the environment. files overrides the
// default ".env".
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := Config{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		ElevenLabsKey: os.Getenv("ELEVENLABS_API_KEY"),
		GoogleAPIKey:  os.Getenv("GOOGLE_API_KEY"),
		TTSVoice:      getEnv("TTS_VOICE", os.Getenv("ELEVENLABS_VOICE_ID")),
		STTProvider:   strings.ToLower(getEnv("STT_PROVIDER", DefaultSTTProvider)),
		TTSProvider:   strings.ToLower(getEnv("TTS_PROVIDER", DefaultTTSProvider)),
		AgentURL:      os.Getenv("AGENT_URL"),
		AgentToken:    os.Getenv("AGENT_TOKEN"),
		StartURL:      getEnv("START_URL", DefaultStartURL),
		TalkKey:       getEnv("TALK_KEY", DefaultTalkKey),
		SkipKey:       getEnv("SKIP_KEY", DefaultSkipKey),
		AudioBackend:  strings.ToLower(getEnv("AUDIO_BACKEND", DefaultAudioBackend)),
		DashboardPort: os.Getenv("DASHBOARD_PORT"),
		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
	}

	if cmd := strings.Fields(os.Getenv("STT_COMMAND")); len(cmd) > 0 {
		cfg.STTCommand = cmd
	}

	n, err := getEnvInt("CACHE_MAX_ENTRIES", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.CacheMaxEntries = n

	return cfg, nil
}

// getEnv returns the value of key, or fallback when unset or empty.
func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}
