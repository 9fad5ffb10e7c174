package voice

import (
	"sync"
	"time"
)

// Metrics counts what the voice layer has done since start.
type Metrics struct {
	Listens          int `json:"listens"`
	EmptyListens     int `json:"empty_listens"`
	CancelledListens int `json:"cancelled_listens"`
	TranscribeErrors int `json:"transcribe_errors"`
	Speaks           int `json:"speaks"`
	CacheHits        int `json:"cache_hits"`
	Syntheses        int `json:"syntheses"`
	SynthesisErrors  int `json:"synthesis_errors"`
	Skipped          int `json:"skipped"`
	Printed          int `json:"printed"`

	// Averages over recent calls.
	Recording  time.Duration `json:"recording_ns"`
	Transcribe time.Duration `json:"transcribe_ns"`
	Synthesis  time.Duration `json:"synthesis_ns"`
}

const historySize = 100

// MetricsCollector records counts and latencies. Safe for concurrent use.
type MetricsCollector struct {
	mu sync.Mutex
	m  Metrics

	recording  []time.Duration
	transcribe []time.Duration
	synthesis  []time.Duration
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

func push(h []time.Duration, d time.Duration) []time.Duration {
	h = append(h, d)
	if len(h) > historySize {
		h = h[1:]
	}
	return h
}

func average(h []time.Duration) time.Duration {
	if len(h) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range h {
		sum += d
	}
	return sum / time.Duration(len(h))
}

// MarkRecording records a finished recording of length d.
func (c *MetricsCollector) MarkRecording(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Listens++
	c.recording = push(c.recording, d)
}

// MarkCancelled records a recording discarded by the skip key.
func (c *MetricsCollector) MarkCancelled() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Listens++
	c.m.CancelledListens++
}

// MarkTranscript records a transcription attempt.
func (c *MetricsCollector) MarkTranscript(latency time.Duration, text string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcribe = push(c.transcribe, latency)
	switch {
	case err != nil:
		c.m.TranscribeErrors++
		c.m.EmptyListens++
	case text == "":
		c.m.EmptyListens++
	}
}

// MarkTooShort records a recording dropped for being too short.
func (c *MetricsCollector) MarkTooShort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.EmptyListens++
}

// MarkSynthesis records a provider call.
func (c *MetricsCollector) MarkSynthesis(latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.m.SynthesisErrors++
		return
	}
	c.m.Syntheses++
	c.synthesis = push(c.synthesis, latency)
}

// MarkSpeak records how a Speak call ended.
func (c *MetricsCollector) MarkSpeak(o Outcome, cacheHit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Speaks++
	if cacheHit {
		c.m.CacheHits++
	}
	switch o {
	case OutcomeSkipped:
		c.m.Skipped++
	case OutcomePrinted:
		c.m.Printed++
	}
}

// Snapshot returns the counters with current averages filled in.
func (c *MetricsCollector) Snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.m
	m.Recording = average(c.recording)
	m.Transcribe = average(c.transcribe)
	m.Synthesis = average(c.synthesis)
	return m
}
