package health

import "errors"

var (
	ErrCheckFailed     = errors.New("health: check failed")
	ErrCheckTimeout    = errors.New("health: check timed out")
	ErrCheckerNotFound = errors.New("health: no such check")

	// ErrCircuitOpen marks a store result while its breaker rejects calls.
	ErrCircuitOpen = errors.New("health: store breaker open")
)
