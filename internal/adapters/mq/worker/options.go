package worker

import (
	"sync/atomic"
	"time"

	"github.com/okian/matchpulse/internal/domain/dedupe"
	"github.com/okian/matchpulse/pkg/logger"
)

// Option applies a configuration option to the StreamWorker.
type Option func(*StreamWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *StreamWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *StreamWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithDeduper sets the window used to drop redelivered messages.
func WithDeduper(d dedupe.Deduper) Option {
	return func(w *StreamWorker) {
		if d != nil {
			w.dedupe = d
		}
	}
}

// WithPollTimeout sets the bounded wait of each poll.
func WithPollTimeout(d time.Duration) Option {
	return func(w *StreamWorker) {
		if d > 0 {
			w.pollTimeout = d
		}
	}
}

func withCounter(c *atomic.Int64) Option {
	return func(w *StreamWorker) {
		if c != nil {
			w.processed = c
		}
	}
}

// PoolOption applies a configuration option to the Pool.
type PoolOption func(*Pool)

// WithPoolDeduper shares d between the pool's workers.
func WithPoolDeduper(d dedupe.Deduper) PoolOption {
	return func(p *Pool) {
		if d != nil {
			p.dedupe = d
		}
	}
}

// WithPoolPollTimeout sets the poll timeout of every worker.
func WithPoolPollTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.pollTimeout = d
		}
	}
}

// WithPoolLogger sets the pool logger.
func WithPoolLogger(l logger.Logger) PoolOption {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
