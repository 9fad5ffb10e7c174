package tts

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("tts: API key required")

	// ErrNoVoiceID is returned when the voice ID is missing.
	ErrNoVoiceID = errors.New("tts: voice ID required")

	// ErrEmptyText is returned for blank input.
	ErrEmptyText = errors.New("tts: empty text")

	// ErrEmptyAudio is returned when a provider answers with no audio.
	ErrEmptyAudio = errors.New("tts: provider returned no audio")

	// ErrProviderUnavailable is returned when no providers are configured.
	ErrProviderUnavailable = errors.New("tts: no providers available")
)

// APIError represents an error response from a TTS HTTP API.
type APIError struct {
	StatusCode int
	Message    string

	// Code is the provider's error code, if any.
	Code string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited returns true for HTTP 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true for HTTP 401.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsServerError returns true for HTTP 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request could succeed on retry.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// SynthesisError wraps any failure with the provider that produced it.
type SynthesisError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// WrapError wraps err as a *SynthesisError. An existing SynthesisError is
// returned unchanged so the innermost provider name survives.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var se *SynthesisError
	if errors.As(err, &se) {
		return err
	}
	return &SynthesisError{Provider: provider, Err: err}
}

// IsAPIError reports whether err carries an *APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
