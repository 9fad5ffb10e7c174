// Package tts turns response text into speech audio.
//
// Every provider returns a complete PCM16 buffer rather than a stream: the
// voice layer caches whole utterances and replays them, so partial audio is
// never useful to it.
//
//	provider, _ := tts.NewOpenAI(tts.WithAPIKey(key))
//	defer provider.Close()
//
//	result, err := provider.Synthesize(ctx, "Clicking on search box")
//	buf := result.Buffer()
//
// Failures are returned as *SynthesisError so callers can fall back to
// printing the text.
package tts

import (
	"context"
	"time"

	"github.com/teslashibe/voicenav/pkg/audioio"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Name identifies the provider in logs and errors.
	Name() string

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is one synthesized utterance.
type AudioResult struct {
	// Audio is little-endian PCM16 in Format.
	Audio []byte

	Format AudioFormat

	// Duration is the playback length.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// Latency is the time the provider took to answer.
	Latency time.Duration

	// Provider names the backend that produced the audio (useful behind a Chain).
	Provider string
}

// Buffer returns the audio as an immutable buffer.
func (r *AudioResult) Buffer() audioio.Buffer {
	if r == nil {
		return audioio.Buffer{}
	}
	ch := r.Format.Channels
	if ch <= 0 {
		ch = 1
	}
	return audioio.BufferFromBytes(r.Audio, r.Format.SampleRate, ch)
}

// newResult builds an AudioResult from a decoded buffer.
func newResult(provider, text string, buf audioio.Buffer, enc Encoding, latency time.Duration) *AudioResult {
	return &AudioResult{
		Audio: buf.Bytes(),
		Format: AudioFormat{
			Encoding:   enc,
			SampleRate: buf.SampleRate(),
			Channels:   buf.Channels(),
			BitDepth:   16,
		},
		Duration:  buf.Duration(),
		CharCount: len(text),
		Latency:   latency,
		Provider:  provider,
	}
}

// AudioFormat describes the PCM parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int
}

// Encoding names an output format. Values match ElevenLabs output_format
// strings; the other providers map onto them.
type Encoding string

const (
	EncodingPCM16 Encoding = "pcm_16000"
	EncodingPCM22 Encoding = "pcm_22050"
	EncodingPCM24 Encoding = "pcm_24000"
	EncodingPCM44 Encoding = "pcm_44100"
)

// SampleRateFromEncoding returns the sample rate of a PCM encoding.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22:
		return 22050
	case EncodingPCM44:
		return 44100
	default:
		return 24000
	}
}

// VoiceSettings controls ElevenLabs voice characteristics.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	Stability float64

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64

	// Style controls style exaggeration (0.0-1.0).
	Style float64

	SpeakerBoost bool
}

// DefaultVoiceSettings returns sensible defaults for narration.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		SpeakerBoost:    true,
	}
}
