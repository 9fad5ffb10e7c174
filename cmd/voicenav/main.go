// voicenav - accessibility browsing assistant with optional push-to-talk voice I/O
//
// Text mode reads instructions from stdin. With --voice, hold the talk key
// (space) to speak and press the skip key (escape) to cut narration short.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.design/x/hotkey/mainthread"

	"github.com/teslashibe/voicenav/internal/config"
	"github.com/teslashibe/voicenav/internal/httpc"
	"github.com/teslashibe/voicenav/internal/log"
	"github.com/teslashibe/voicenav/internal/providers"
	"github.com/teslashibe/voicenav/pkg/agent"
	"github.com/teslashibe/voicenav/pkg/assistant"
	"github.com/teslashibe/voicenav/pkg/audioio"
	"github.com/teslashibe/voicenav/pkg/capture"
	"github.com/teslashibe/voicenav/pkg/keys"
	"github.com/teslashibe/voicenav/pkg/keys/hotkeys"
	"github.com/teslashibe/voicenav/pkg/playback"
	"github.com/teslashibe/voicenav/pkg/voice"
	"github.com/teslashibe/voicenav/pkg/web"
)

// options is config.Config plus the flags that only exist on the command line.
type options struct {
	config.Config
	Voice bool
	Debug bool
}

func main() {
	code := 0
	// Hotkey callbacks need the main thread on macOS.
	mainthread.Init(func() {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			code = 1
		}
	})
	os.Exit(code)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opts := parseFlags(cfg)

	level := opts.LogLevel
	if opts.Debug {
		level = "debug"
	}
	log.Init(level)
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newAgent(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	conv := agent.NewConversation(a, opts.StartURL)
	loop := &assistant.Loop{
		Conversation: conv,
		Out:          os.Stdout,
		Logger:       logger,
	}

	if !opts.Voice {
		console := assistant.NewConsole(os.Stdin, os.Stdout)
		loop.Listener, loop.Narrator = console, console
		loop.Greeting = assistant.TextGreeting
		if opts.DashboardPort != "" {
			logger.Warn("dashboard needs --voice, ignoring DASHBOARD_PORT")
		}
		return loop.Run(ctx)
	}

	v, closeAudio, err := newVoice(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer closeAudio()
	defer v.Close()

	if err := v.Run(ctx); err != nil {
		return err
	}
	go func() {
		if err := v.Prefetch(ctx, assistant.VoiceGreeting, assistant.WaitingPrompt); err != nil {
			logger.Warn("prefetch failed", "error", err)
		}
	}()

	var narrator assistant.Narrator = assistant.NewVoiceNarrator(v, os.Stdout, logger)
	if opts.DashboardPort != "" {
		srv := web.NewServer(v, "", logger)
		v.Observe(srv.UpdateState)
		conv.OnItem = func(it agent.Item) { srv.AddConversation(string(it.Role), it.Content) }
		narrator = dashboardNarrator{Narrator: narrator, srv: srv}
		go func() {
			if err := srv.ListenAndServe(ctx, ":"+opts.DashboardPort); err != nil {
				logger.Error("dashboard stopped", "error", err)
			}
		}()
	}

	loop.Listener = v
	loop.Narrator = narrator
	loop.Greeting = assistant.VoiceGreeting
	loop.Waiting = assistant.WaitingPrompt
	return loop.Run(ctx)
}

// parseFlags overrides environment settings with command line flags.
func parseFlags(cfg config.Config) options {
	opts := options{Config: cfg}

	flag.BoolVar(&opts.Voice, "voice", false, "Enable voice input and output (requires microphone and speakers)")
	flag.BoolVar(&opts.Debug, "debug", false, "Enable verbose debug logging")
	flag.StringVar(&opts.StartURL, "start-url", cfg.StartURL, "Start the browsing session with this URL")
	flag.StringVar(&opts.AgentURL, "agent-url", cfg.AgentURL, "Browsing agent WebSocket URL (empty uses a local echo agent)")
	flag.StringVar(&opts.STTProvider, "stt", cfg.STTProvider, "Speech-to-text provider: openai, google, command")
	flag.StringVar(&opts.TTSProvider, "tts", cfg.TTSProvider, "Text-to-speech provider: openai, elevenlabs, google, system")
	flag.StringVar(&opts.TTSVoice, "tts-voice", cfg.TTSVoice, "Voice name or ID for the openai, elevenlabs or google TTS provider")
	flag.StringVar(&opts.AudioBackend, "audio", cfg.AudioBackend, "Audio backend: auto, alsa, coreaudio, mock")
	flag.StringVar(&opts.TalkKey, "talk-key", cfg.TalkKey, "Push-to-talk key")
	flag.StringVar(&opts.SkipKey, "skip-key", cfg.SkipKey, "Skip key")
	flag.StringVar(&opts.DashboardPort, "dashboard", cfg.DashboardPort, "Serve the status dashboard on this port")
	flag.Parse()

	return opts
}

func newAgent(ctx context.Context, opts options, logger *slog.Logger) (agent.Agent, error) {
	if opts.AgentURL == "" {
		logger.Warn("AGENT_URL not set, using the local echo agent")
		return agent.NewMock("Navigating to " + opts.StartURL), nil
	}
	return agent.Dial(ctx, opts.AgentURL,
		agent.WithToken(opts.AgentToken),
		agent.WithLogger(logger),
	)
}

// newVoice wires audio devices, providers and keys into a VoiceIO. The
// returned func releases the audio devices.
func newVoice(ctx context.Context, opts options, logger *slog.Logger) (*voice.VoiceIO, func(), error) {
	hc := httpc.NewClient(providers.DefaultTimeout)

	transcriber, err := providers.Transcriber(ctx, opts.Config, hc, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("speech-to-text: %w", err)
	}
	synth, err := providers.Synthesizer(ctx, opts.Config, hc, true, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("text-to-speech: %w", err)
	}

	capCfg := audioio.DefaultConfig()
	capCfg.Backend = audioio.Backend(opts.AudioBackend)
	src, err := audioio.NewSource(capCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	playCfg := audioio.DefaultPlaybackConfig()
	playCfg.Backend = audioio.Backend(opts.AudioBackend)
	sink, err := audioio.NewSink(playCfg, logger)
	if err != nil {
		src.Close()
		return nil, nil, err
	}

	recorder := capture.NewRecorder(src, logger)
	closeAudio := func() {
		recorder.Close()
		sink.Stop()
		synth.Close()
	}

	ks, err := hotkeys.New(keys.Bindings{Talk: opts.TalkKey, Skip: opts.SkipKey}, logger)
	if err != nil {
		closeAudio()
		return nil, nil, err
	}

	vcfg := voice.DefaultConfig()
	vcfg.Transcriber = transcriber
	vcfg.Synthesizer = synth
	vcfg.Recorder = recorder
	vcfg.Player = playback.NewController(sink, logger)
	vcfg.Keys = ks
	vcfg.Cache = playback.NewCache(opts.CacheMaxEntries)
	// Text is already echoed to stdout by the narrator.
	vcfg.Output = os.Stderr
	vcfg.Logger = logger

	v, err := voice.New(vcfg)
	if err != nil {
		closeAudio()
		return nil, nil, err
	}
	return v, closeAudio, nil
}

// dashboardNarrator mirrors narration into the dashboard log.
type dashboardNarrator struct {
	assistant.Narrator
	srv *web.Server
}

func (d dashboardNarrator) Say(ctx context.Context, text string) {
	d.srv.AddLog("step", text)
	d.Narrator.Say(ctx, text)
}
