package broker

import "errors"

// Sentinel errors returned by brokers.
var (
	ErrNoMessage = errors.New("no message")
	ErrClosed    = errors.New("broker closed")
	ErrQueueFull = errors.New("topic queue is full")
)
