package service

import "errors"

// Sentinel errors of the service.
var (
	ErrNotFound     = errors.New("no prediction for match")
	ErrNotStarted   = errors.New("service not started")
	ErrPublish      = errors.New("publish failed")
	ErrUnknownTopic = errors.New("no topic for record kind")
)
