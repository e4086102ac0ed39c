package resilience

import "errors"

var (
	// ErrOpen is returned when an open breaker rejects a call.
	ErrOpen = errors.New("resilience: breaker open")

	// ErrDeadline is returned when an attempt exceeds its deadline.
	ErrDeadline = errors.New("resilience: deadline exceeded")
)
