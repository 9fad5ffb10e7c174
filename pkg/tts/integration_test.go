//go:build integration

package tts_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/teslashibe/voicenav/pkg/tts"
)

// Run with: go test -tags=integration -v ./pkg/tts/...
func TestProvidersIntegration(t *testing.T) {
	ctx := context.Background()

	factories := map[string]func(t *testing.T) (tts.Provider, error){
		"openai": func(t *testing.T) (tts.Provider, error) {
			key := os.Getenv("OPENAI_API_KEY")
			if key == "" {
				t.Skip("OPENAI_API_KEY not set")
			}
			return tts.NewOpenAI(tts.WithAPIKey(key))
		},
		"elevenlabs": func(t *testing.T) (tts.Provider, error) {
			key := os.Getenv("ELEVENLABS_API_KEY")
			if key == "" {
				t.Skip("ELEVENLABS_API_KEY not set")
			}
			return tts.NewElevenLabs(tts.WithAPIKey(key), tts.WithVoice(os.Getenv("ELEVENLABS_VOICE_ID")))
		},
		"google": func(t *testing.T) (tts.Provider, error) {
			if os.Getenv("GOOGLE_API_KEY") == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
				t.Skip("no Google credentials")
			}
			return tts.NewGoogle(ctx, tts.WithAPIKey(os.Getenv("GOOGLE_API_KEY")))
		},
		"system": func(t *testing.T) (tts.Provider, error) {
			return tts.NewSystem()
		},
	}

	for name, factory := range factories {
		t.Run(name, func(t *testing.T) {
			p, err := factory(t)
			if err != nil {
				t.Skipf("provider unavailable: %v", err)
			}
			defer p.Close()

			ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()

			res, err := p.Synthesize(ctx, "Hello, this is a test.")
			if err != nil {
				t.Fatalf("Synthesize: %v", err)
			}
			buf := res.Buffer()
			if buf.Duration() < 500*time.Millisecond {
				t.Errorf("suspiciously short audio: %v", buf.Duration())
			}
			t.Logf("%s: %v of audio in %v", name, buf.Duration(), res.Latency)
		})
	}
}
