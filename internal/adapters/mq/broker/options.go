package broker

import (
	"time"

	"github.com/okian/matchpulse/pkg/logger"
)

const (
	defaultCapacity   = 100000
	defaultMaxLen     = 1000000
	defaultClaimIdle  = time.Minute
	defaultClaimEvery = 5 * time.Second
)

type settings struct {
	capacity   int
	maxLen     int64
	claimIdle  time.Duration
	claimEvery time.Duration
	log        logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		capacity:   defaultCapacity,
		maxLen:     defaultMaxLen,
		claimIdle:  defaultClaimIdle,
		claimEvery: defaultClaimEvery,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to a broker.
type Option func(*settings)

// WithCapacity sets the per-topic capacity of the memory broker.
func WithCapacity(capacity int) Option {
	return func(s *settings) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithMaxLen caps stream length on XADD (approximate trimming).
func WithMaxLen(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxLen = n
		}
	}
}

// WithClaimIdle sets how long a pending entry must be idle before another
// consumer claims it.
func WithClaimIdle(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.claimIdle = d
		}
	}
}

// WithClaimEvery sets how often a consumer looks for idle pending entries.
func WithClaimEvery(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.claimEvery = d
		}
	}
}

// WithLogger sets the broker logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
