package audioio

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for device failures.
var (
	// ErrPermissionDenied is returned when the OS refuses microphone or speaker access.
	ErrPermissionDenied = errors.New("audioio: device permission denied")

	// ErrDeviceUnavailable is returned when the backend tool or device is missing.
	ErrDeviceUnavailable = errors.New("audioio: device unavailable")
)

// DeviceError describes a device failure with guidance for the user.
type DeviceError struct {
	// Device is the backend/device pair, e.g. "alsa:default".
	Device string

	// Op is the failing operation ("open", "read", "write").
	Op string

	// Err is ErrPermissionDenied, ErrDeviceUnavailable, or a raw cause.
	Err error

	// Hint is a human-readable suggestion for fixing the problem.
	Hint string
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	msg := fmt.Sprintf("audioio [%s] %s: %v", e.Device, e.Op, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// classifyStderr turns a backend tool's stderr into a sentinel-bearing error.
func classifyStderr(stderr string, cause error) error {
	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "not permitted"),
		strings.Contains(lower, "access denied"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(stderr))
	case strings.Contains(lower, "no such file"),
		strings.Contains(lower, "no such device"),
		strings.Contains(lower, "cannot open"),
		strings.Contains(lower, "can't open"):
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, strings.TrimSpace(stderr))
	}
	if stderr != "" {
		return fmt.Errorf("%w: %s", cause, strings.TrimSpace(stderr))
	}
	return cause
}

// hintFor returns guidance for a classified device error.
func hintFor(backend Backend, err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		if backend == BackendCoreAudio {
			return "allow microphone access for your terminal in System Settings > Privacy & Security"
		}
		return "add your user to the 'audio' group or check PulseAudio/PipeWire permissions"
	case errors.Is(err, ErrDeviceUnavailable):
		if backend == BackendCoreAudio {
			return "install SoX (brew install sox) and check the default input/output device"
		}
		return "install alsa-utils and check the device name with 'arecord -l' / 'aplay -l'"
	}
	return ""
}
