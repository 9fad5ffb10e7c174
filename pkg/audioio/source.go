package audioio

import (
	"context"
	"io"
	"time"
)

// AudioChunk is one read from the microphone or one write to the speaker:
// interleaved PCM16 plus its format. Samples may be shared, so never
// modify a chunk you were handed.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// ChunkFromBytes decodes raw little-endian PCM16 as a backend tool
// writes it to stdout.
func ChunkFromBytes(data []byte, sampleRate, channels int) AudioChunk {
	return AudioChunk{
		Samples:    BytesToSamples(data),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Bytes encodes the chunk as little-endian PCM16.
func (c AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// Duration is how long the chunk plays for.
func (c AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)/c.Channels) * time.Second / time.Duration(c.SampleRate)
}

// Source is the push-to-talk microphone. capture.Recorder starts it when
// the talk key goes down and stops it on release, so one Source sees
// many Start/Stop cycles over a session.
type Source interface {
	// Start opens the device. Chunks then arrive on Stream, or via Read.
	Start(ctx context.Context) error

	// Stop closes the device and the Stream channel, returning the error
	// that ended capture early, if there was one. Repeated calls are fine.
	Stop() error

	// Read returns the next chunk, or io.EOF once stopped.
	Read(ctx context.Context) (AudioChunk, error)

	Stream() <-chan AudioChunk
	Config() Config

	// Name is the backend: "alsa", "coreaudio" or "mock".
	Name() string

	// Close is final; a closed Source cannot be started again.
	io.Closer
}

// SourceStats counts what a microphone has delivered. Overruns are reads
// that were dropped because nobody was draining the stream.
type SourceStats struct {
	ChunksRead  int64  `json:"chunks_read"`
	SamplesRead int64  `json:"samples_read"`
	Overruns    int64  `json:"overruns"`
	Running     bool   `json:"running"`
	Backend     string `json:"backend"`
}

// SourceWithStats is a Source the voice-check tool can report on.
type SourceWithStats interface {
	Source
	Stats() SourceStats
}
