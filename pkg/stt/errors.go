package stt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrEmptyAudio is returned for empty or near-empty recordings.
	ErrEmptyAudio = errors.New("stt: audio too short")

	// ErrNoSpeech is returned when the provider heard nothing.
	ErrNoSpeech = errors.New("stt: no speech recognised")
)

// TranscriptionError is the only error type Transcribe returns.
type TranscriptionError struct {
	Provider string

	// StatusCode is the HTTP status for API failures, 0 otherwise.
	StatusCode int

	Err error
}

// Error implements the error interface.
func (e *TranscriptionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("stt [%s]: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("stt [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// IsQuotaExceeded reports a rate-limit or billing refusal.
func (e *TranscriptionError) IsQuotaExceeded() bool {
	return e.StatusCode == 429 || e.StatusCode == 402
}

// IsUnauthorized reports a rejected credential.
func (e *TranscriptionError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

func wrap(provider string, status int, err error) error {
	if err == nil {
		return nil
	}
	var te *TranscriptionError
	if errors.As(err, &te) {
		return te
	}
	return &TranscriptionError{Provider: provider, StatusCode: status, Err: err}
}
