//go:build darwin

package audioio

import (
	"log/slog"
	"strconv"
)

// soxSpec builds a SoX rec/play invocation streaming raw PCM16 through stdio.
func soxSpec(tool string, cfg Config) commandSpec {
	return commandSpec{
		backend: BackendCoreAudio,
		name:    tool,
		args: []string{
			"-q",
			"-t", "raw",
			"-b", "16",
			"-e", "signed-integer",
			"-L",
			"-r", strconv.Itoa(cfg.SampleRate),
			"-c", strconv.Itoa(cfg.Channels),
			"-",
		},
	}
}

// newDarwinSource creates a capture source backed by SoX rec.
func newDarwinSource(cfg Config, logger *slog.Logger) (Source, error) {
	logger.Debug("CoreAudio source created",
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)
	return newCommandSource(cfg, soxSpec("rec", cfg), logger), nil
}

// newDarwinSink creates a playback sink backed by SoX play.
func newDarwinSink(cfg Config, logger *slog.Logger) (Sink, error) {
	logger.Debug("CoreAudio sink created",
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)
	return newCommandSink(cfg, soxSpec("play", cfg), logger), nil
}
