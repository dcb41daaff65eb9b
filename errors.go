package gate

import "errors"

var (
	// ErrCircuitOpen is wrapped into the network error returned when the
	// session circuit breaker is open and calls fail fast.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrRetriesExhausted is wrapped into the network error returned when
	// every transport attempt failed.
	ErrRetriesExhausted = errors.New("max retries exceeded")
)
