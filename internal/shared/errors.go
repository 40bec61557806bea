package shared

import (
	"fmt"
	"net/http"

	"github.com/desertthunder/tubetodo/internal/models"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrTodoNotFound       = fmt.Errorf("todo item not found")
	ErrSettingNotFound    = fmt.Errorf("setting not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// InputError reports a playlist reference that could not be normalized. It is raised before any network call.
type InputError struct {
	Input  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid playlist reference %q: %s", e.Input, e.Reason)
	}
	return fmt.Sprintf("invalid playlist reference %q", e.Input)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// BackendError reports a non-success or unusable response from a backend adapter.
//
// Status is the upstream HTTP status, or 0 when no response was received.
type BackendError struct {
	Backend string // "youtube", "piped", "invidious", "mirror"
	Stage   string // "playlist", "items", "videos", ...
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	prefix := e.Backend
	if e.Stage != "" {
		prefix += " " + e.Stage
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", prefix, e.Status, e.Message)
}

func (e *BackendError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrPlaylistNotFound
	}
	return ErrAPIRequest
}

// ProbeError describes why a single mirror candidate failed its health probe.
type ProbeError struct {
	Failure models.ProbeFailure
	Stage   string
	Status  int
	Err     error
}

func (e *ProbeError) Error() string {
	msg := string(e.Failure)
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProbeError) Unwrap() error { return e.Err }
