package service

import (
	"time"

	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/adapters/mq/worker"
	"github.com/okian/matchpulse/internal/adapters/repository"
	"github.com/okian/matchpulse/internal/domain/scoring"
	"github.com/okian/matchpulse/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStateStore sets the live state store.
func WithStateStore(st repository.Store) Option {
	return func(s *Service) { s.state = st }
}

// WithPredictionCache sets the latest-prediction cache.
func WithPredictionCache(c repository.PredictionCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEventLog sets where inbound events are appended.
func WithEventLog(l EventLog) Option {
	return func(s *Service) { s.events = l }
}

// WithPredictionStore sets where predictions are persisted.
func WithPredictionStore(p PredictionStore) Option {
	return func(s *Service) { s.predictions = p }
}

// WithClassifier sets the outcome classifier.
func WithClassifier(c scoring.Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithExplainer sets the explainer.
func WithExplainer(e Explainer) Option {
	return func(s *Service) { s.explainer = e }
}

// WithPublisher sets the broker publisher for events and predictions.
func WithPublisher(p broker.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithConsumerFactory sets how workers open their stream consumers.
func WithConsumerFactory(f worker.ConsumerFactory) Option {
	return func(s *Service) { s.consumers = f }
}

// WithTopics sets the stream names.
func WithTopics(t Topics) Option {
	return func(s *Service) {
		if t.MatchEvents != "" && t.PlayerEvents != "" && t.Predictions != "" {
			s.topics = t
		}
	}
}

// WithEveryN sets the prediction cadence.
func WithEveryN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.everyN = n
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize sets the size of the redelivery window.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithPollTimeout sets the bounded wait of each worker poll.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

// WithClock sets the clock stamping predictions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
