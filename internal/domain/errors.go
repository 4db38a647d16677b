package domain

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrThrottled is returned when the store rejects a call due to throughput limits.
	// Callers may retry; everything else coming out of the gateway is fatal.
	ErrThrottled = errors.New("store throttled")

	// ErrCircuitOpen is returned when the circuit breaker rejects a call
	// without touching the store
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// IsRetryable reports whether an error may succeed on a later attempt
func IsRetryable(err error) bool {
	return errors.Is(err, ErrThrottled)
}
