// Command voice-check exercises the speech pipeline without the browsing
// agent, to check devices and credentials and to measure latency.
//
// Usage:
//
//	go run ./cmd/voice-check --tts openai --loops 3
//	go run ./cmd/voice-check --tts system --no-play
//	go run ./cmd/voice-check --stt openai --mic --duration 3s
//
// The first loop synthesizes the phrase; later loops play it from the
// cache, so the table shows both the cold and the cached path.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/voicenav/internal/config"
	"github.com/teslashibe/voicenav/internal/log"
	"github.com/teslashibe/voicenav/internal/providers"
	"github.com/teslashibe/voicenav/pkg/audioio"
	"github.com/teslashibe/voicenav/pkg/capture"
	"github.com/teslashibe/voicenav/pkg/playback"
	"github.com/teslashibe/voicenav/pkg/tts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Config error: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.TTSProvider, "tts", cfg.TTSProvider, "Text-to-speech provider: openai, elevenlabs, google, system")
	flag.StringVar(&cfg.STTProvider, "stt", cfg.STTProvider, "Speech-to-text provider: openai, google, command")
	flag.StringVar(&cfg.AudioBackend, "audio", cfg.AudioBackend, "Audio backend: auto, alsa, coreaudio, mock")
	loops := flag.Int("loops", 3, "Number of times to speak the phrase")
	phrase := flag.String("phrase", "Waiting for input...", "Text to speak")
	noPlay := flag.Bool("no-play", false, "Synthesize only, skip the speaker")
	mic := flag.Bool("mic", false, "Also record from the microphone and transcribe")
	duration := flag.Duration("duration", 3*time.Second, "Recording length with --mic")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	level := cfg.LogLevel
	if *debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("🎤 Voice Pipeline Check")
	fmt.Println("=======================")
	fmt.Printf("TTS: %s | STT: %s | Audio: %s\n", cfg.TTSProvider, cfg.STTProvider, cfg.AudioBackend)
	fmt.Println()

	synth, err := providers.Synthesizer(ctx, cfg, nil, false, logger)
	if err != nil {
		fmt.Printf("❌ Text-to-speech: %v\n", err)
		os.Exit(1)
	}
	defer synth.Close()

	var (
		player *playback.Controller
		sink   audioio.Sink
	)
	if !*noPlay {
		pcfg := audioio.DefaultPlaybackConfig()
		pcfg.Backend = audioio.Backend(cfg.AudioBackend)
		sink, err = audioio.NewSink(pcfg, logger)
		if err != nil {
			fail("Speaker", err)
		}
		defer sink.Stop()
		player = playback.NewController(sink, logger)
	}

	results := speakLoops(ctx, synth, player, playback.NewCache(0), *phrase, *loops)
	printResults(synth.Name(), results)
	if s, ok := sink.(audioio.SinkWithStats); ok {
		st := s.Stats()
		fmt.Printf("🔊 Speaker (%s): %d chunks, %d samples, %d clears\n", st.Backend, st.ChunksWritten, st.SamplesWritten, st.Clears)
	}

	if *mic {
		if err := checkMic(ctx, cfg, *duration, logger); err != nil {
			fail("Microphone", err)
		}
	}
}

// Result holds metrics for one loop.
type Result struct {
	Loop      int
	Cached    bool
	Synthesis time.Duration // zero on a cache hit
	Audio     time.Duration
	Playback  time.Duration
	Status    string
	Error     error
}

func speakLoops(ctx context.Context, synth tts.Provider, player *playback.Controller, cache *playback.Cache, text string, loops int) []Result {
	results := make([]Result, 0, loops)

	for i := 1; i <= loops; i++ {
		if ctx.Err() != nil {
			break
		}
		fmt.Printf("📝 Loop %d/%d\n", i, loops)
		r := Result{Loop: i}

		buf, ok := cache.Get(text)
		r.Cached = ok
		if !ok {
			start := time.Now()
			res, err := synth.Synthesize(ctx, text)
			r.Synthesis = time.Since(start)
			if err != nil {
				r.Error = err
				fmt.Printf("   ❌ Error: %v\n", err)
				results = append(results, r)
				continue
			}
			buf = res.Buffer()
			cache.Put(text, buf)
		}
		r.Audio = buf.Duration()

		r.Status = "synthesized"
		if player != nil {
			start := time.Now()
			status, err := player.Play(ctx, buf, playback.NewHandle())
			r.Playback = time.Since(start)
			r.Status = status.String()
			if err != nil {
				r.Error = err
				fmt.Printf("   ❌ Error: %v\n", err)
			}
		}
		results = append(results, r)
		fmt.Printf("   📊 Synthesis: %s | Audio: %s | Playback: %s\n",
			formatDuration(r.Synthesis), formatDuration(r.Audio), formatDuration(r.Playback))
	}
	return results
}

func checkMic(ctx context.Context, cfg config.Config, d time.Duration, logger *slog.Logger) error {
	transcriber, err := providers.Transcriber(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}

	ccfg := audioio.DefaultConfig()
	ccfg.Backend = audioio.Backend(cfg.AudioBackend)
	src, err := audioio.NewSource(ccfg, logger)
	if err != nil {
		return err
	}
	rec := capture.NewRecorder(src, logger)
	defer rec.Close()

	fmt.Println()
	fmt.Printf("🎙️  Recording for %s, speak now...\n", d)
	session, err := rec.StartRecording(ctx)
	if err != nil {
		return err
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		rec.Cancel()
		return ctx.Err()
	}
	fmt.Printf("   Level: %.3f\n", session.Level())

	buf, err := rec.StopRecording()
	if err != nil && buf.IsEmpty() {
		return err
	}
	fmt.Printf("   Captured %s (%d frames)\n", formatDuration(buf.Duration()), buf.Frames())
	if s, ok := src.(audioio.SourceWithStats); ok {
		st := s.Stats()
		fmt.Printf("   Microphone (%s): %d chunks, %d overruns\n", st.Backend, st.ChunksRead, st.Overruns)
	}

	start := time.Now()
	text, err := transcriber.Transcribe(ctx, buf)
	if err != nil {
		return err
	}
	fmt.Printf("   📝 %q in %s\n", truncate(text, 60), formatDuration(time.Since(start)))
	return nil
}

// printResults displays the summary table.
func printResults(provider string, results []Result) {
	fmt.Println()
	fmt.Println("📊 Results Summary")
	fmt.Println("==================")
	fmt.Printf("Provider: %s\n", provider)
	fmt.Printf("Loops run: %d\n", len(results))
	fmt.Println()

	if len(results) == 0 {
		fmt.Println("No results to display.")
		return
	}

	fmt.Println("┌──────┬────────────────┬────────────────┬────────────────┬──────────────┐")
	fmt.Println("│ Loop │ Synthesis      │ Audio          │ Playback       │ Status       │")
	fmt.Println("├──────┼────────────────┼────────────────┼────────────────┼──────────────┤")
	for _, r := range results {
		status := "✅ " + r.Status
		switch {
		case r.Error != nil:
			status = "❌ error"
		case r.Cached:
			status = "♻️  cached"
		}
		fmt.Printf("│ %4d │ %14s │ %14s │ %14s │ %12s │\n",
			r.Loop,
			formatDuration(r.Synthesis),
			formatDuration(r.Audio),
			formatDuration(r.Playback),
			status)
	}
	fmt.Println("└──────┴────────────────┴────────────────┴────────────────┴──────────────┘")
}

// fail prints err, with the device hint on its own line when there is one.
func fail(what string, err error) {
	fmt.Printf("❌ %s: %v\n", what, err)
	var de *audioio.DeviceError
	if errors.As(err, &de) && de.Hint != "" {
		fmt.Printf("   💡 %s\n", de.Hint)
	}
	os.Exit(1)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
