package audioio

import (
	"math"
	"time"
)

// Resample converts audio from one sample rate to another using linear
// interpolation. Good enough for speech; input must be mono.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	if fromRate <= 0 || toRate <= 0 {
		return []int16{}
	}

	ratio := float64(fromRate) / float64(toRate)
	n := int(int64(len(samples)) * int64(toRate) / int64(fromRate))
	out := make([]int16, n)

	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		s1 := float64(samples[idx])
		s2 := float64(samples[idx+1])
		out[i] = int16(s1 + frac*(s2-s1))
	}
	return out
}

// BytesToSamples converts little-endian PCM16 bytes to samples.
// A trailing odd byte is ignored.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts samples to little-endian PCM16 bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// MonoToStereo duplicates mono samples into both channels.
func MonoToStereo(samples []int16) []int16 {
	stereo := make([]int16, len(samples)*2)
	for i, s := range samples {
		stereo[i*2] = s
		stereo[i*2+1] = s
	}
	return stereo
}

// StereoToMono averages interleaved stereo samples.
func StereoToMono(samples []int16) []int16 {
	mono := make([]int16, len(samples)/2)
	for i := range mono {
		mono[i] = int16((int32(samples[i*2]) + int32(samples[i*2+1])) / 2)
	}
	return mono
}

// Level returns the RMS level of samples in [0, 1], where 1 is a full-scale
// square wave. Used for the microphone meter.
func Level(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the largest absolute sample value.
func Peak(samples []int16) int {
	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Silence returns a zeroed buffer of duration d.
func Silence(d time.Duration, sampleRate, channels int) Buffer {
	frames := int(d * time.Duration(sampleRate) / time.Second)
	return adoptBuffer(make([]int16, frames*channels), sampleRate, channels)
}

// Tone returns a sine wave buffer. Recording cues and test fixtures use it.
func Tone(freq float64, d time.Duration, sampleRate, channels int, amplitude float64) Buffer {
	frames := int(d * time.Duration(sampleRate) / time.Second)
	out := make([]int16, frames*channels)
	for i := 0; i < frames; i++ {
		v := int16(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
		for c := 0; c < channels; c++ {
			out[i*channels+c] = v
		}
	}
	return adoptBuffer(out, sampleRate, channels)
}
