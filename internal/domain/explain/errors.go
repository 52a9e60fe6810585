package explain

import "errors"

// Degradation causes. They are reported on Explanation.Degraded, never
// returned as errors from Explain.
var (
	ErrNoCompleter      = errors.New("no completion provider configured")
	ErrRetrievalFailed  = errors.New("retrieval failed")
	ErrCompletionFailed = errors.New("completion failed")
)
