package normalize

import (
	"errors"
	"fmt"
)

// ErrValidation is the root of every hard validation failure. Records that
// fail validation are dropped, never retried.
var ErrValidation = errors.New("validation failed")

// Validation failures by missing field.
var (
	ErrMalformedRecord  = fmt.Errorf("%w: record is not a JSON object", ErrValidation)
	ErrMissingMatchID   = fmt.Errorf("%w: match_id is required", ErrValidation)
	ErrMissingTimestamp = fmt.Errorf("%w: ts is required", ErrValidation)
	ErrInvalidTimestamp = fmt.Errorf("%w: ts is not an ISO-8601 timestamp", ErrValidation)
	ErrMissingKind      = fmt.Errorf("%w: event kind is required", ErrValidation)
	ErrMissingPlayer    = fmt.Errorf("%w: player is required", ErrValidation)
	ErrUnknownKind      = fmt.Errorf("%w: unknown record kind", ErrValidation)
)
