//go:build linux

package audioio

import (
	"log/slog"
	"strconv"
)

// alsaSpec builds the arecord/aplay invocation for raw little-endian PCM16.
func alsaSpec(tool string, cfg Config) commandSpec {
	device := cfg.Device
	if device == "" {
		device = "default"
	}
	return commandSpec{
		backend: BackendALSA,
		device:  device,
		name:    tool,
		args: []string{
			"-q",
			"-t", "raw",
			"-f", "S16_LE",
			"-r", strconv.Itoa(cfg.SampleRate),
			"-c", strconv.Itoa(cfg.Channels),
			"-D", device,
		},
	}
}

// newALSASource creates a capture source backed by arecord.
func newALSASource(cfg Config, logger *slog.Logger) (Source, error) {
	spec := alsaSpec("arecord", cfg)
	logger.Debug("ALSA source created",
		"device", spec.device,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)
	return newCommandSource(cfg, spec, logger), nil
}

// newALSASink creates a playback sink backed by aplay.
func newALSASink(cfg Config, logger *slog.Logger) (Sink, error) {
	spec := alsaSpec("aplay", cfg)
	logger.Debug("ALSA sink created",
		"device", spec.device,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
	)
	return newCommandSink(cfg, spec, logger), nil
}
