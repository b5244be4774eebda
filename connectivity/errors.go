package connectivity

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrStatus is returned when the remote answered with a non-2xx status.
type ErrStatus struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrStatus) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("connectivity: remote returned %d", e.Code)
	}
	return fmt.Sprintf("connectivity: remote returned %d: %s", e.Code, e.Body)
}

// Temporary reports whether retrying the same payload can succeed:
// rate limiting and server-side failures only.
func (e *ErrStatus) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// ErrCircuitOpen is returned when the breaker for a destination is open and
// the call was rejected without being attempted.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("connectivity: circuit open: %s", e.Service)
}

// ErrPanic wraps a recovered panic value as an error.
type ErrPanic struct {
	Value any
}

func (e *ErrPanic) Error() string {
	return fmt.Sprintf("connectivity: handler panicked: %v", e.Value)
}

// retryable decides whether WithRetry should try again after err.
func retryable(err error) bool {
	var open *ErrCircuitOpen
	if errors.As(err, &open) {
		return false
	}
	var status *ErrStatus
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return true
}

// retryAfter extracts a server-provided wait, if any.
func retryAfter(err error) time.Duration {
	var status *ErrStatus
	if errors.As(err, &status) {
		return status.RetryAfter
	}
	return 0
}
