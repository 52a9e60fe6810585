package repository

import (
	"time"

	"github.com/okian/matchpulse/pkg/logger"
)

const (
	defaultTTL        = 6 * time.Hour
	defaultMaxRetries = 16
	defaultShards     = 32
)

type settings struct {
	ttl        time.Duration
	maxRetries int
	shards     int
	now        func() time.Time
	log        logger.Logger
}

func newSettings(opts []Option) settings {
	s := settings{
		ttl:        defaultTTL,
		maxRetries: defaultMaxRetries,
		shards:     defaultShards,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("repository")
	}
	return s
}

// Option applies a configuration option to a store.
type Option func(*settings)

// WithTTL sets how long state and predictions live after their last write.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithMaxRetries sets the compare-and-swap retry budget of the Redis store.
func WithMaxRetries(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithShards sets the number of lock shards.
func WithShards(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.shards = n
		}
	}
}

// WithClock replaces the wall clock used for in-memory expiry.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}
