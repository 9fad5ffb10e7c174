package audioio

import (
	"fmt"
	"log/slog"
	"runtime"
)

// NewSource opens the push-to-talk microphone. Nothing is captured until
// Start; BackendAuto picks arecord on Linux and SoX on macOS.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	cfg, logger, err := prepare(cfg, logger, "microphone")
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendMock:
		return NewMockSource(cfg, logger), nil
	case BackendALSA:
		return newALSASource(cfg, logger)
	case BackendCoreAudio:
		return newDarwinSource(cfg, logger)
	}
	return nil, fmt.Errorf("audioio: unsupported microphone backend %q", cfg.Backend)
}

// NewSink opens the speaker used for narration.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	cfg, logger, err := prepare(cfg, logger, "speaker")
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendMock:
		return NewMockSink(cfg, logger), nil
	case BackendALSA:
		return newALSASink(cfg, logger)
	case BackendCoreAudio:
		return newDarwinSink(cfg, logger)
	}
	return nil, fmt.Errorf("audioio: unsupported speaker backend %q", cfg.Backend)
}

func prepare(cfg Config, logger *slog.Logger, role string) (Config, *slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("audioio: %s config: %w", role, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Backend = platformBackend(cfg.Backend)

	logger.Info("opening "+role,
		"backend", cfg.Backend,
		"device", cfg.Device,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)
	return cfg, logger, nil
}

// platformBackend resolves BackendAuto for this OS. Anything other than
// Linux or macOS gets the mock, so the assistant still runs text-only.
func platformBackend(b Backend) Backend {
	if b != BackendAuto && b != "" {
		return b
	}
	switch runtime.GOOS {
	case "linux":
		return BackendALSA
	case "darwin":
		return BackendCoreAudio
	}
	return BackendMock
}

// wrongPlatform reports a backend that was asked for by name on an OS
// that cannot run it.
func wrongPlatform(b Backend, cfg Config) error {
	device := cfg.Device
	if device == "" {
		device = "default"
	}
	return &DeviceError{
		Device: string(b) + ":" + device,
		Op:     "open",
		Err:    ErrDeviceUnavailable,
		Hint:   "not available on " + runtime.GOOS + "; use --audio auto, or --audio mock to run text-only",
	}
}
