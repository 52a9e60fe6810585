package embedding

import "errors"

// Sentinel errors for embedding and retrieval.
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyText         = errors.New("nothing to embed")
)
