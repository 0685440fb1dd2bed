package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBreakerOpen means the circuit breaker refused the call without
	// attempting it. Callers must not count it as another endpoint failure.
	ErrBreakerOpen = errors.New("circuit breaker open")

	// ErrUnavailable means a fetch could not produce data after the full
	// resilience policy ran. Stored tracker state is kept as-is.
	ErrUnavailable = errors.New("data unavailable")

	// ErrBadPayload means the provider responded but the payload did not
	// match the expected shape. Not breaker-eligible.
	ErrBadPayload = errors.New("malformed provider payload")

	// ErrProviderError means the provider reported a logical error that is
	// not an empty-result case. Not breaker-eligible.
	ErrProviderError = errors.New("provider error")
)

// TransientError marks a failure as network/timeout-class. Only transient
// failures count toward the circuit breaker's failure threshold and are worth
// retrying; everything else surfaces immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// Transientf formats a new transient error.
func Transientf(format string, args ...any) error {
	return &TransientError{Err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err is marked network/timeout-class.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
