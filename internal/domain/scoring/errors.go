package scoring

import "errors"

// Sentinel errors for classifier loading and inference.
var (
	ErrInference = errors.New("inference failed")
	ErrModelLoad = errors.New("model load failed")
)
