package library

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// MaxRetries bounds attempts for a single library request.
const MaxRetries = 3

// StatusError is a non-success response from the library API.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}

// IsRetryable reports whether err is worth retrying: transport failures and
// 5xx responses. 4xx responses are not.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrNotFound) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500
	}
	return true
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if base > 10*time.Second {
		base = 10 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base)/2 + 1))
	return base + jitter
}
