package storage

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned when input validation fails.
var ErrInvalidInput = errors.New("invalid input")

// RetryableError marks a persistence failure as transient: the same
// batch may be re-applied safely because all feature writes are keyed
// upserts. Anything not wrapped (schema mismatch, malformed row) is
// fatal and must not be retried.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as transient. Returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is marked transient.
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}
