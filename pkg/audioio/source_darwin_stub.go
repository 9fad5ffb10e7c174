//go:build !darwin

package audioio

import "log/slog"

// SoX's coreaudio driver only exists on macOS.

func newDarwinSource(cfg Config, _ *slog.Logger) (Source, error) {
	return nil, wrongPlatform(BackendCoreAudio, cfg)
}

func newDarwinSink(cfg Config, _ *slog.Logger) (Sink, error) {
	return nil, wrongPlatform(BackendCoreAudio, cfg)
}
