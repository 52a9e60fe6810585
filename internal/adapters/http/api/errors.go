package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrUnavailable = errors.New("event stream unavailable")
	ErrTooLarge    = errors.New("request body too large")
)
