package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/voicenav/pkg/audioio"
	"github.com/teslashibe/voicenav/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()
	ctx := context.Background()

	t.Run("Synthesize returns audio", func(t *testing.T) {
		result, err := mock.Synthesize(ctx, "Hello world")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.CharCount != 11 {
			t.Errorf("expected 11 chars, got %d", result.CharCount)
		}
		buf := result.Buffer()
		if buf.SampleRate() != 24000 || buf.Channels() != 1 {
			t.Errorf("format = %d/%d", buf.SampleRate(), buf.Channels())
		}
		if buf.Duration() != 220*time.Millisecond || result.Duration != buf.Duration() {
			t.Errorf("duration = %v / %v", buf.Duration(), result.Duration)
		}
		if !buf.Equal(tts.MockAudio("Hello world")) {
			t.Error("mock audio is not deterministic")
		}
	})

	t.Run("Health returns nil", func(t *testing.T) {
		if err := mock.Health(ctx); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Calls are tracked", func(t *testing.T) {
		if len(mock.Calls()) != 2 {
			t.Errorf("expected 2 calls, got %d", len(mock.Calls()))
		}
		if mock.TextCount("Hello world") != 1 {
			t.Errorf("TextCount = %d", mock.TextCount("Hello world"))
		}
		mock.Reset()
		if mock.CallCount("Synthesize") != 0 {
			t.Error("Reset did not clear calls")
		}
	})
}

func TestMockWithError(t *testing.T) {
	mock := tts.WithError(errors.New("quota"))
	_, err := mock.Synthesize(context.Background(), "hi")

	var se *tts.SynthesisError
	if !errors.As(err, &se) || se.Provider != "mock" {
		t.Fatalf("err = %v", err)
	}
}

func TestMockWithLatency(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), 200*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := mock.Synthesize(ctx, "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestAudioResult_Buffer(t *testing.T) {
	var nilResult *tts.AudioResult
	if !nilResult.Buffer().IsEmpty() {
		t.Error("nil result should give an empty buffer")
	}

	r := &tts.AudioResult{
		Audio:  []byte{1, 0, 2, 0},
		Format: tts.AudioFormat{SampleRate: 16000},
	}
	buf := r.Buffer()
	if buf.Channels() != 1 || buf.Len() != 2 {
		t.Errorf("buffer = %d ch, %d samples", buf.Channels(), buf.Len())
	}
}

func TestSampleRateFromEncoding(t *testing.T) {
	tests := []struct {
		enc  tts.Encoding
		want int
	}{
		{tts.EncodingPCM16, 16000},
		{tts.EncodingPCM22, 22050},
		{tts.EncodingPCM24, 24000},
		{tts.EncodingPCM44, 44100},
		{"unknown", 24000},
	}
	for _, tt := range tests {
		if got := tts.SampleRateFromEncoding(tt.enc); got != tt.want {
			t.Errorf("SampleRateFromEncoding(%s) = %d, want %d", tt.enc, got, tt.want)
		}
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		status      int
		rateLimited bool
		server      bool
		retryable   bool
	}{
		{429, true, false, true},
		{500, false, true, true},
		{503, false, true, true},
		{401, false, false, false},
		{400, false, false, false},
	}
	for _, tt := range tests {
		e := &tts.APIError{StatusCode: tt.status}
		if e.IsRateLimited() != tt.rateLimited || e.IsServerError() != tt.server || e.IsRetryable() != tt.retryable {
			t.Errorf("status %d: rate=%v server=%v retry=%v", tt.status, e.IsRateLimited(), e.IsServerError(), e.IsRetryable())
		}
	}

	wrapped := tts.WrapError("openai", &tts.APIError{StatusCode: 401, Message: "bad key"})
	apiErr, ok := tts.IsAPIError(wrapped)
	if !ok || !apiErr.IsUnauthorized() {
		t.Errorf("IsAPIError(%v) = %v, %v", wrapped, apiErr, ok)
	}
	if tts.WrapError("x", nil) != nil {
		t.Error("WrapError(nil) should be nil")
	}
}

func pcmServer(t *testing.T, check func(r *http.Request, body map[string]any), pcm []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		check(r, body)
		w.Header().Set("Content-Type", "audio/pcm")
		w.Write(pcm)
	}))
}

func TestOpenAI_Synthesize(t *testing.T) {
	pcm := tts.MockAudio("Clicking on search box").Bytes()

	srv := pcmServer(t, func(r *http.Request, body map[string]any) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		if body["response_format"] != "pcm" || body["voice"] != tts.VoiceNova || body["input"] != "Clicking on search box" {
			t.Errorf("body = %v", body)
		}
	}, pcm)
	defer srv.Close()

	p, err := tts.NewOpenAI(
		tts.WithAPIKey("sk-test"),
		tts.WithBaseURL(srv.URL+"/v1"),
		tts.WithVoice(tts.VoiceNova),
		tts.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer p.Close()

	res, err := p.Synthesize(context.Background(), "Clicking on search box")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Provider != "openai" || res.Format.SampleRate != 24000 {
		t.Errorf("result = %+v", res.Format)
	}
	if !res.Buffer().Equal(tts.MockAudio("Clicking on search box")) {
		t.Error("audio mismatch")
	}
}

func TestOpenAI_NoRetryByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"message":"overloaded","code":"server_busy"}}`)
	}))
	defer srv.Close()

	p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithHTTPClient(srv.Client()))
	_, err := p.Synthesize(context.Background(), "hello")

	var se *tts.SynthesisError
	if !errors.As(err, &se) || se.Provider != "openai" {
		t.Fatalf("err = %v", err)
	}
	apiErr, ok := tts.IsAPIError(err)
	if !ok || apiErr.StatusCode != 503 || apiErr.Code != "server_busy" || apiErr.Message != "overloaded" {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", hits.Load())
	}

	// Opt-in retries.
	hits.Store(0)
	p, _ = tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL),
		tts.WithHTTPClient(srv.Client()), tts.WithRetry(2, time.Millisecond))
	p.Synthesize(context.Background(), "hello")
	if hits.Load() != 3 {
		t.Errorf("expected 3 attempts with retries, got %d", hits.Load())
	}
}

func TestOpenAI_RequiresKey(t *testing.T) {
	if _, err := tts.NewOpenAI(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("err = %v", err)
	}
}

func TestElevenLabs_Synthesize(t *testing.T) {
	pcm := audioio.Tone(300, 100*time.Millisecond, 22050, 1, 0.2).Bytes()

	srv := pcmServer(t, func(r *http.Request, body map[string]any) {
		if r.URL.Path != "/v1/text-to-speech/21m00Tcm4TlvDq8ikWAM" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "pcm_22050" {
			t.Errorf("output_format = %q", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "el-key" {
			t.Errorf("api key header = %q", r.Header.Get("xi-api-key"))
		}
		if body["model_id"] != tts.ModelTurboV2_5 {
			t.Errorf("model_id = %v", body["model_id"])
		}
	}, pcm)
	defer srv.Close()

	p, err := tts.NewElevenLabs(
		tts.WithAPIKey("el-key"),
		tts.WithVoice("rachel"),
		tts.WithBaseURL(srv.URL+"/v1"),
		tts.WithOutputFormat(tts.EncodingPCM22),
		tts.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewElevenLabs: %v", err)
	}

	res, err := p.Synthesize(context.Background(), "Opening Google")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if res.Buffer().SampleRate() != 22050 || res.Buffer().Duration() != 100*time.Millisecond {
		t.Errorf("buffer = %d Hz, %v", res.Buffer().SampleRate(), res.Buffer().Duration())
	}
}

func TestElevenLabs_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`)
	}))
	defer srv.Close()

	p, _ := tts.NewElevenLabs(tts.WithAPIKey("bad"), tts.WithBaseURL(srv.URL), tts.WithHTTPClient(srv.Client()))
	_, err := p.Synthesize(context.Background(), "hi")

	apiErr, ok := tts.IsAPIError(err)
	if !ok || !apiErr.IsUnauthorized() || apiErr.Message != "Invalid API key" {
		t.Errorf("err = %v", err)
	}
}

func TestGoogle_Synthesize(t *testing.T) {
	want := audioio.Tone(500, 80*time.Millisecond, 24000, 1, 0.2)
	var got struct {
		Input struct {
			Text string `json:"text"`
		} `json:"input"`
		AudioConfig struct {
			AudioEncoding   string `json:"audioEncoding"`
			SampleRateHertz int    `json:"sampleRateHertz"`
		} `json:"audioConfig"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/text:synthesize") {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(audioio.EncodeWAV(want)),
		})
	}))
	defer srv.Close()

	p, err := tts.NewGoogle(context.Background(), tts.WithBaseURL(srv.URL+"/"), tts.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGoogle: %v", err)
	}

	res, err := p.Synthesize(context.Background(), "Task complete")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.Input.Text != "Task complete" || got.AudioConfig.AudioEncoding != "LINEAR16" || got.AudioConfig.SampleRateHertz != 24000 {
		t.Errorf("request = %+v", got)
	}
	if !res.Buffer().Equal(want) {
		t.Error("WAV header was not stripped")
	}
}

func TestSystem(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}

	// A fake engine that echoes a fixed WAV regardless of input.
	wav := audioio.EncodeWAV(audioio.Tone(400, 50*time.Millisecond, 16000, 1, 0.2))
	dir := t.TempDir()
	path := dir + "/fake.wav"
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("stdout", func(t *testing.T) {
		p, err := tts.NewSystem(tts.WithCommand("sh", "-c", `cat >/dev/null; cat "$0"`, path))
		if err != nil {
			t.Fatalf("NewSystem: %v", err)
		}
		res, err := p.Synthesize(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if res.Format.Encoding != tts.EncodingPCM16 || res.Buffer().Duration() != 50*time.Millisecond {
			t.Errorf("result = %+v, %v", res.Format, res.Buffer().Duration())
		}
	})

	t.Run("output file", func(t *testing.T) {
		p, err := tts.NewSystem(tts.WithCommand("sh", "-c", `cp "$0" "$1"`, path, tts.OutputPlaceholder))
		if err != nil {
			t.Fatalf("NewSystem: %v", err)
		}
		if _, err := p.Synthesize(context.Background(), "hello"); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
	})

	t.Run("missing tool", func(t *testing.T) {
		_, err := tts.NewSystem(tts.WithCommand("no-such-voice-engine"))
		var se *tts.SynthesisError
		if !errors.As(err, &se) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestChain(t *testing.T) {
	ctx := context.Background()

	if _, err := tts.NewChain(nil); !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("empty chain err = %v", err)
	}

	t.Run("falls back", func(t *testing.T) {
		failing := tts.WithError(errors.New("cloud down"))
		backup := tts.NewMock()
		chain, _ := tts.NewChain(nil, failing, backup)

		res, err := chain.Synthesize(ctx, "hello")
		if err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
		if res.Provider != "mock" || backup.CallCount("Synthesize") != 1 {
			t.Errorf("fallback not used")
		}
		if chain.Name() != "chain(mock,mock)" {
			t.Errorf("Name = %q", chain.Name())
		}
	})

	t.Run("all fail", func(t *testing.T) {
		boom := errors.New("boom")
		chain, _ := tts.NewChain(nil, tts.WithError(errors.New("first")), tts.WithError(boom))

		_, err := chain.Synthesize(ctx, "hello")
		var ce *tts.ChainError
		if !errors.As(err, &ce) || len(ce.Errors) != 2 {
			t.Fatalf("err = %v", err)
		}
		if !errors.Is(err, boom) {
			t.Error("chain error should expose provider errors")
		}
		var se *tts.SynthesisError
		if !errors.As(err, &se) {
			t.Error("chain error should be a SynthesisError")
		}
	})

	t.Run("health", func(t *testing.T) {
		chain, _ := tts.NewChain(nil, tts.WithError(errors.New("down")), tts.NewMock())
		if err := chain.Health(ctx); err != nil {
			t.Errorf("Health = %v", err)
		}
	})
}
