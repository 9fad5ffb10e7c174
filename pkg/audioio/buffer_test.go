package audioio

import (
	"testing"
	"time"
)

func TestBuffer_Immutable(t *testing.T) {
	src := []int16{1, 2, 3, 4}
	b := NewBuffer(src, 16000, 1)

	src[0] = 99
	if b.Samples()[0] != 1 {
		t.Error("NewBuffer did not copy its input")
	}

	out := b.Samples()
	out[1] = 99
	if b.Samples()[1] != 2 {
		t.Error("Samples exposed internal storage")
	}

	chunk := b.Chunk(0, 4)
	chunk.Samples = append(chunk.Samples, 5)
	if b.Len() != 4 || b.Samples()[3] != 4 {
		t.Error("appending to a chunk modified the buffer")
	}
}

func TestBuffer_Accessors(t *testing.T) {
	b := NewBuffer(make([]int16, 48000), 24000, 2)

	if b.Frames() != 24000 {
		t.Errorf("Frames = %d, want 24000", b.Frames())
	}
	if b.Duration() != time.Second {
		t.Errorf("Duration = %v, want 1s", b.Duration())
	}
	if b.IsEmpty() {
		t.Error("IsEmpty = true")
	}
	if len(b.Bytes()) != 96000 {
		t.Errorf("Bytes len = %d", len(b.Bytes()))
	}

	var zero Buffer
	if !zero.IsEmpty() || zero.Frames() != 0 || zero.Duration() != 0 {
		t.Error("zero Buffer should be empty")
	}
}

func TestBuffer_Chunk(t *testing.T) {
	b := NewBuffer([]int16{0, 1, 2, 3, 4, 5, 6, 7}, 8000, 2)

	tests := []struct {
		name       string
		start, end int
		want       []int16
	}{
		{"middle", 1, 3, []int16{2, 3, 4, 5}},
		{"clamp end", 3, 10, []int16{6, 7}},
		{"clamp start", -2, 1, []int16{0, 1}},
		{"inverted", 3, 1, []int16{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := b.Chunk(tt.start, tt.end)
			if len(c.Samples) != len(tt.want) {
				t.Fatalf("got %v, want %v", c.Samples, tt.want)
			}
			for i := range tt.want {
				if c.Samples[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", c.Samples, tt.want)
				}
			}
			if c.SampleRate != 8000 || c.Channels != 2 {
				t.Errorf("format = %d/%d", c.SampleRate, c.Channels)
			}
		})
	}
}

func TestBuffer_Convert(t *testing.T) {
	mono16k := Tone(300, 100*time.Millisecond, 16000, 1, 0.5)

	same := mono16k.Convert(16000, 1)
	if !same.Equal(mono16k) {
		t.Error("Convert to same format changed audio")
	}

	stereo24k := mono16k.Convert(24000, 2)
	if stereo24k.SampleRate() != 24000 || stereo24k.Channels() != 2 {
		t.Fatalf("format = %d/%d", stereo24k.SampleRate(), stereo24k.Channels())
	}
	if stereo24k.Frames() != 2400 {
		t.Errorf("Frames = %d, want 2400", stereo24k.Frames())
	}

	back := stereo24k.Convert(16000, 1)
	if back.Frames() != 1600 {
		t.Errorf("Frames = %d, want 1600", back.Frames())
	}
}

func TestConcat(t *testing.T) {
	chunks := []AudioChunk{
		{Samples: []int16{1, 2}, SampleRate: 16000, Channels: 1},
		{Samples: []int16{3}, SampleRate: 16000, Channels: 1},
		{Samples: []int16{4, 4}, SampleRate: 16000, Channels: 2},
	}

	b := Concat(chunks, 16000, 1)
	want := NewBuffer([]int16{1, 2, 3, 4}, 16000, 1)
	if !b.Equal(want) {
		t.Errorf("Concat = %v", b.Samples())
	}

	if !Concat(nil, 16000, 1).IsEmpty() {
		t.Error("Concat(nil) should be empty")
	}
}
