package audioio

import (
	"time"
)

// Buffer is an immutable block of PCM16 audio.
//
// The sample slice is never exposed for writing: constructors copy their input
// and Samples returns a copy. Slicing shares the backing array, which is safe
// because nothing mutates it.
type Buffer struct {
	samples    []int16
	sampleRate int
	channels   int
}

// NewBuffer copies samples into a new Buffer.
func NewBuffer(samples []int16, sampleRate, channels int) Buffer {
	cp := make([]int16, len(samples))
	copy(cp, samples)
	return Buffer{samples: cp, sampleRate: sampleRate, channels: channels}
}

// BufferFromBytes decodes little-endian PCM16 bytes into a Buffer.
func BufferFromBytes(pcm []byte, sampleRate, channels int) Buffer {
	return Buffer{samples: BytesToSamples(pcm), sampleRate: sampleRate, channels: channels}
}

// adoptBuffer wraps samples without copying. Callers must not keep a reference.
func adoptBuffer(samples []int16, sampleRate, channels int) Buffer {
	return Buffer{samples: samples, sampleRate: sampleRate, channels: channels}
}

// SampleRate returns the sample rate in Hz.
func (b Buffer) SampleRate() int { return b.sampleRate }

// Channels returns the channel count.
func (b Buffer) Channels() int { return b.channels }

// Len returns the number of interleaved samples.
func (b Buffer) Len() int { return len(b.samples) }

// Frames returns the number of sample frames (samples per channel).
func (b Buffer) Frames() int {
	if b.channels <= 0 {
		return 0
	}
	return len(b.samples) / b.channels
}

// IsEmpty reports whether the buffer holds no audio.
func (b Buffer) IsEmpty() bool { return len(b.samples) == 0 }

// Duration returns the playback length.
func (b Buffer) Duration() time.Duration {
	if b.sampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.sampleRate)
}

// Samples returns a copy of the interleaved samples.
func (b Buffer) Samples() []int16 {
	cp := make([]int16, len(b.samples))
	copy(cp, b.samples)
	return cp
}

// Bytes returns the audio as little-endian PCM16.
func (b Buffer) Bytes() []byte {
	return SamplesToBytes(b.samples)
}

// Chunk returns the frames in [start, end) as an AudioChunk that shares storage
// with the buffer. Bounds are clamped.
func (b Buffer) Chunk(start, end int) AudioChunk {
	frames := b.Frames()
	if start < 0 {
		start = 0
	}
	if end > frames {
		end = frames
	}
	if start > end {
		start = end
	}
	return AudioChunk{
		Samples:    b.samples[start*b.channels : end*b.channels : end*b.channels],
		SampleRate: b.sampleRate,
		Channels:   b.channels,
	}
}

// Equal reports whether two buffers hold identical audio.
func (b Buffer) Equal(o Buffer) bool {
	if b.sampleRate != o.sampleRate || b.channels != o.channels || len(b.samples) != len(o.samples) {
		return false
	}
	for i := range b.samples {
		if b.samples[i] != o.samples[i] {
			return false
		}
	}
	return true
}

// Convert returns the buffer resampled and remixed to the target format.
// The receiver is returned unchanged when it already matches.
func (b Buffer) Convert(sampleRate, channels int) Buffer {
	if b.sampleRate == sampleRate && b.channels == channels {
		return b
	}

	samples := b.samples
	if b.channels == 2 {
		samples = StereoToMono(samples)
	}
	if b.sampleRate != sampleRate && b.sampleRate > 0 {
		samples = Resample(samples, b.sampleRate, sampleRate)
	}
	if channels == 2 {
		samples = MonoToStereo(samples)
	}
	return adoptBuffer(samples, sampleRate, channels)
}

// Concat joins chunks of identical format into one Buffer.
// Chunks with a different format than the first are converted.
func Concat(chunks []AudioChunk, sampleRate, channels int) Buffer {
	total := 0
	for _, c := range chunks {
		total += len(c.Samples)
	}
	out := make([]int16, 0, total)
	for _, c := range chunks {
		if (c.SampleRate != 0 && c.SampleRate != sampleRate) || (c.Channels != 0 && c.Channels != channels) {
			conv := adoptBuffer(c.Samples, c.SampleRate, c.Channels).Convert(sampleRate, channels)
			out = append(out, conv.samples...)
			continue
		}
		out = append(out, c.Samples...)
	}
	return adoptBuffer(out, sampleRate, channels)
}
