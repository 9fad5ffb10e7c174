//go:build !linux

package audioio

import "log/slog"

func newALSASource(cfg Config, _ *slog.Logger) (Source, error) {
	return nil, wrongPlatform(BackendALSA, cfg)
}

func newALSASink(cfg Config, _ *slog.Logger) (Sink, error) {
	return nil, wrongPlatform(BackendALSA, cfg)
}
