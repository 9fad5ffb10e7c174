// Package audioio provides microphone capture and speaker playback.
//
// This package supports multiple backends:
//   - ALSA (Linux) - arecord/aplay from alsa-utils
//   - CoreAudio (macOS) - rec/play from SoX
//   - Mock - CI/Testing without hardware
//
// The backend is selected automatically based on the platform,
// or can be explicitly specified via configuration.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto automatically selects the best available backend.
	BackendAuto Backend = "auto"
	// BackendALSA uses Linux ALSA for audio I/O.
	BackendALSA Backend = "alsa"
	// BackendCoreAudio uses macOS CoreAudio (through SoX) for audio I/O.
	BackendCoreAudio Backend = "coreaudio"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Common sample rates.
const (
	// CaptureSampleRate is what speech-to-text providers expect.
	CaptureSampleRate = 16000
	// PlaybackSampleRate matches the PCM output of the TTS providers.
	PlaybackSampleRate = 24000
)

// Config holds audio configuration for one device direction.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "auto" (selects best available for platform)
	Backend Backend `json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	SampleRate int `json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `json:"channels"`

	// BufferDuration is the size of audio buffers.
	// Default: 20ms
	BufferDuration time.Duration `json:"buffer_duration"`

	// Device is the platform-specific device identifier.
	// Examples:
	//   - ALSA: "default", "plughw:1,0"
	//   - CoreAudio: ignored (system default device)
	//   - Mock: ignored
	Device string `json:"device"`
}

// DefaultConfig returns a capture Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     CaptureSampleRate,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}
}

// DefaultPlaybackConfig returns a playback Config with sensible defaults.
func DefaultPlaybackConfig() Config {
	cfg := DefaultConfig()
	cfg.SampleRate = PlaybackSampleRate
	return cfg
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	return nil
}

// BufferSize returns the number of frames per buffer.
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a buffer in bytes (int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2
}
