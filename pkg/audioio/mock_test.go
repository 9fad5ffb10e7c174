package audioio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestMockSource_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Starting again should be a no-op
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	// Stopping again should be a no-op
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}

	if src.Starts() != 1 {
		t.Errorf("Expected 1 start, got %d", src.Starts())
	}
}

func TestMockSource_Restart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		if err := src.Start(ctx); err != nil {
			t.Fatalf("Start %d failed: %v", i, err)
		}
		if _, err := src.Read(ctx); err != nil {
			t.Fatalf("Read %d failed: %v", i, err)
		}
		if err := src.Stop(); err != nil {
			t.Fatalf("Stop %d failed: %v", i, err)
		}
	}

	if src.Starts() != 3 {
		t.Errorf("Expected 3 starts, got %d", src.Starts())
	}
}

func TestMockSource_Read(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	expectedSamples := cfg.BufferSize() * cfg.Channels
	if len(chunk.Samples) != expectedSamples {
		t.Errorf("Expected %d samples, got %d", expectedSamples, len(chunk.Samples))
	}

	if chunk.SampleRate != cfg.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", cfg.SampleRate, chunk.SampleRate)
	}
}

func TestMockSource_StreamClosesOnStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil)
	defer src.Close()

	if err := src.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	stream := src.Stream()

	time.Sleep(35 * time.Millisecond)
	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	count := 0
	for range stream {
		count++
	}
	if count < 2 {
		t.Errorf("Expected buffered chunks to drain after stop, got %d", count)
	}

	if _, err := src.Read(context.Background()); err != io.EOF {
		t.Errorf("Expected io.EOF after stop, got %v", err)
	}
}

func TestMockSource_SineWave(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond

	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	hasNonZero := false
	for _, s := range chunk.Samples {
		if s != 0 {
			hasNonZero = true
			break
		}
	}

	if !hasNonZero {
		t.Error("Expected non-zero samples from sine wave generator")
	}
}

func TestMockSource_Errors(t *testing.T) {
	cfg := DefaultConfig()
	ctx := context.Background()

	t.Run("start error", func(t *testing.T) {
		src := NewMockSource(cfg, nil, WithStartError(ErrPermissionDenied))
		if err := src.Start(ctx); !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("Expected ErrPermissionDenied, got %v", err)
		}
	})

	t.Run("stop error", func(t *testing.T) {
		src := NewMockSource(cfg, nil, WithStopError(ErrDeviceUnavailable))
		if err := src.Start(ctx); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if err := src.Stop(); !errors.Is(err, ErrDeviceUnavailable) {
			t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
		}
	})
}

func TestMockSource_Close(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg, nil)

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := src.Start(ctx); err != io.ErrClosedPipe {
		t.Errorf("Expected ErrClosedPipe after close, got: %v", err)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}

func TestMockSink_WriteFlushClear(t *testing.T) {
	cfg := DefaultPlaybackConfig()
	sink := NewMockSink(cfg, nil)
	defer sink.Close()

	ctx := context.Background()

	if err := sink.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	chunk := AudioChunk{
		Samples:    []int16{1, 2, 3, 4},
		SampleRate: 24000,
		Channels:   1,
	}

	if err := sink.Write(ctx, chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := sink.Write(ctx, chunk); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats := sink.Stats()
	if stats.ChunksWritten != 2 {
		t.Errorf("Expected 2 chunks written, got %d", stats.ChunksWritten)
	}
	if stats.Clears != 1 || sink.Clears() != 1 {
		t.Errorf("Expected 1 clear, got %d", stats.Clears)
	}
	if sink.Flushes() != 1 {
		t.Errorf("Expected 1 flush, got %d", sink.Flushes())
	}

	written := sink.Written()
	want := NewBuffer([]int16{1, 2, 3, 4, 1, 2, 3, 4}, 24000, 1)
	if !written.Equal(want) {
		t.Errorf("Written audio mismatch: got %v", written.Samples())
	}

	sink.Reset()
	if !sink.Written().IsEmpty() {
		t.Error("Expected empty written buffer after Reset")
	}
}

func TestMockSink_FailWrites(t *testing.T) {
	sink := NewMockSink(DefaultPlaybackConfig(), nil)
	defer sink.Close()

	ctx := context.Background()
	sink.Start(ctx)

	sink.FailWrites(ErrDeviceUnavailable)
	err := sink.Write(ctx, AudioChunk{Samples: []int16{1}})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
	}

	sink.FailWrites(nil)
	if err := sink.Write(ctx, AudioChunk{Samples: []int16{1}}); err != nil {
		t.Errorf("Expected recovery, got %v", err)
	}
}

func TestMockSink_NotRunning(t *testing.T) {
	sink := NewMockSink(DefaultConfig(), nil)
	defer sink.Close()

	chunk := AudioChunk{
		Samples:    make([]int16, 480),
		SampleRate: 24000,
		Channels:   1,
	}

	if err := sink.Write(context.Background(), chunk); err == nil {
		t.Error("Expected error when writing to non-running sink")
	}
}

func TestAudioChunk_Bytes(t *testing.T) {
	chunk := AudioChunk{
		Samples:    []int16{0x0102, 0x0304, -1},
		SampleRate: 24000,
		Channels:   1,
	}

	bytes := chunk.Bytes()
	if len(bytes) != 6 {
		t.Errorf("Expected 6 bytes, got %d", len(bytes))
	}

	if bytes[0] != 0x02 || bytes[1] != 0x01 {
		t.Errorf("First sample not encoded correctly: %v", bytes[0:2])
	}
}

func TestChunkFromBytes(t *testing.T) {
	data := []byte{0x02, 0x01, 0x04, 0x03, 0xFF, 0xFF}

	chunk := ChunkFromBytes(data, 24000, 1)

	if len(chunk.Samples) != 3 {
		t.Errorf("Expected 3 samples, got %d", len(chunk.Samples))
	}

	if chunk.Samples[0] != 0x0102 {
		t.Errorf("First sample incorrect: got %d, expected %d", chunk.Samples[0], 0x0102)
	}

	if chunk.Samples[2] != -1 {
		t.Errorf("Third sample incorrect: got %d, expected -1", chunk.Samples[2])
	}
}

func TestAudioChunk_Duration(t *testing.T) {
	chunk := AudioChunk{
		Samples:    make([]int16, 480), // 20ms at 24kHz mono
		SampleRate: 24000,
		Channels:   1,
	}

	if d := chunk.Duration(); d != 20*time.Millisecond {
		t.Errorf("Duration() = %v, want 20ms", d)
	}
}
