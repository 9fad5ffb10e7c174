package audioio

import (
	"context"
	"io"
)

// Sink is the speaker narration is played on. playback.Controller is its
// only writer: it starts the sink for each utterance, writes paced
// chunks, and either drains with Flush or drops the rest with Clear when
// the user skips or talks over it.
type Sink interface {
	Start(ctx context.Context) error

	// Stop closes the device. Repeated calls are fine.
	Stop() error

	// Write queues a chunk in the sink's own format (see Config) and may
	// block while the device buffer is full.
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush blocks until everything queued has been heard.
	Flush(ctx context.Context) error

	// Clear throws away queued audio without waiting for it.
	Clear() error

	Config() Config

	// Name is the backend: "alsa", "coreaudio" or "mock".
	Name() string

	io.Closer
}

// SinkStats counts what has been sent to the speaker.
type SinkStats struct {
	ChunksWritten  int64  `json:"chunks_written"`
	SamplesWritten int64  `json:"samples_written"`
	Clears         int64  `json:"clears"`
	Running        bool   `json:"running"`
	Backend        string `json:"backend"`
}

// SinkWithStats is a Sink the voice-check tool can report on.
type SinkWithStats interface {
	Sink
	Stats() SinkStats
}
