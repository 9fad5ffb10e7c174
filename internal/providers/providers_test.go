package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/teslashibe/voicenav/internal/config"
	"github.com/teslashibe/voicenav/internal/log"
	"github.com/teslashibe/voicenav/pkg/stt"
	"github.com/teslashibe/voicenav/pkg/tts"
)

func TestTranscriber(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr error
	}{
		{"openai", config.Config{STTProvider: "openai", OpenAIKey: "sk-test"}, "openai", nil},
		{"openai without key", config.Config{STTProvider: "openai"}, "", stt.ErrNoAPIKey},
		{"command", config.Config{STTProvider: "command", STTCommand: []string{"whisper-cli"}}, "command", nil},
		{"google with key", config.Config{STTProvider: "google", GoogleAPIKey: "AIza-test"}, "google", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Transcriber(context.Background(), tt.cfg, nil, log.Discard())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.want)
			}
		})
	}

	if _, err := Transcriber(context.Background(), config.Config{STTProvider: "carrier-pigeon"}, nil, log.Discard()); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestSynthesizer(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		want    string
		wantErr error
	}{
		{"openai", config.Config{TTSProvider: "openai", OpenAIKey: "sk-test"}, "openai", nil},
		{"elevenlabs without key", config.Config{TTSProvider: "elevenlabs"}, "", tts.ErrNoAPIKey},
		{"google with key", config.Config{TTSProvider: "google", GoogleAPIKey: "AIza-test"}, "google", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Synthesizer(context.Background(), tt.cfg, nil, false, log.Discard())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.want)
			}
		})
	}

	if _, err := Synthesizer(context.Background(), config.Config{TTSProvider: "morse"}, nil, false, log.Discard()); err == nil {
		t.Error("unknown provider accepted")
	}
}

func TestSynthesizer_Voice(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"openai default", config.Config{TTSProvider: "openai", OpenAIKey: "sk-test"}, tts.VoiceAlloy},
		{"openai", config.Config{TTSProvider: "openai", OpenAIKey: "sk-test", TTSVoice: tts.VoiceNova}, tts.VoiceNova},
		{"elevenlabs", config.Config{TTSProvider: "elevenlabs", ElevenLabsKey: "xi-test", TTSVoice: "rachel"}, "21m00Tcm4TlvDq8ikWAM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Synthesizer(context.Background(), tt.cfg, nil, false, log.Discard())
			if err != nil {
				t.Fatal(err)
			}
			v, ok := p.(interface{ VoiceID() string })
			if !ok {
				t.Fatalf("%T has no VoiceID", p)
			}
			if got := v.VoiceID(); got != tt.want {
				t.Errorf("VoiceID() = %q, want %q", got, tt.want)
			}
		})
	}
}
