package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound = errors.New("not found")
	// ErrLostUpdate means the compare-and-swap budget ran out under contention.
	ErrLostUpdate = errors.New("live state update lost")
)
