package llm

import "errors"

// Sentinel errors of the completion client.
var (
	ErrMissingAPIKey = errors.New("completion api key is not configured")
	ErrCompletion    = errors.New("completion request failed")
	ErrCircuitOpen   = errors.New("completion circuit breaker is open")
	ErrEmptyResponse = errors.New("completion response has no content")
)
