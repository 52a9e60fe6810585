package postgres

import "errors"

// Sentinel errors for the relational store.
var (
	ErrNotFound = errors.New("no rows found")
)
