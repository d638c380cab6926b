package llm

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse indicates the backend answered with a payload that
// could not be decoded or carried no choices. Treated as transient.
var ErrMalformedResponse = errors.New("llm: malformed backend response")

// BackendUnavailableError indicates the service could not be reached
// (connection refused, timeout). Transient: callers may retry with backoff.
type BackendUnavailableError struct {
	Endpoint string
	Err      error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("llm: backend unavailable at %s: %v", e.Endpoint, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// ContextOverflowError indicates the prompt exceeded the backend's
// configured context window. This is a configuration problem, never
// retried and never silently truncated.
type ContextOverflowError struct {
	Detail string
}

func (e *ContextOverflowError) Error() string {
	return "llm: prompt exceeds backend context window: " + e.Detail
}

// IsTransient reports whether err is worth retrying: unreachable backend
// or a malformed response. Context overflow and cancellation are not.
func IsTransient(err error) bool {
	var unavailable *BackendUnavailableError
	if errors.As(err, &unavailable) {
		return true
	}
	return errors.Is(err, ErrMalformedResponse)
}
