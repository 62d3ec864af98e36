package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for backend communication failures.
var (
	// ErrUnreachable is returned when the backend cannot be contacted at
	// the transport level (connection refused, timeout, DNS failure).
	ErrUnreachable = errors.New("api: backend unreachable")

	// ErrBadEnvelope is returned when a backend response body is not a
	// well-formed envelope.
	ErrBadEnvelope = errors.New("api: malformed envelope")
)

// CallError wraps a failure to complete a backend call with the endpoint
// that was being called.
type CallError struct {
	Endpoint string
	Err      error
}

// Error returns the error message with endpoint context.
func (e *CallError) Error() string {
	return fmt.Sprintf("api: %s: %v", e.Endpoint, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *CallError) Unwrap() error {
	return e.Err
}
