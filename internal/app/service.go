// Package service wires the prediction pipeline, its stores and the worker
// pool, and serves the read and ingest paths used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/adapters/mq/worker"
	"github.com/okian/matchpulse/internal/adapters/postgres"
	"github.com/okian/matchpulse/internal/adapters/repository"
	"github.com/okian/matchpulse/internal/domain/cadence"
	"github.com/okian/matchpulse/internal/domain/dedupe"
	"github.com/okian/matchpulse/internal/domain/embedding"
	"github.com/okian/matchpulse/internal/domain/explain"
	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/internal/domain/scoring"
	"github.com/okian/matchpulse/internal/domain/types"
	"github.com/okian/matchpulse/pkg/logger"
	"github.com/okian/matchpulse/pkg/metrics"
)

// Topics names the three streams of the pipeline.
type Topics struct {
	MatchEvents  string
	PlayerEvents string
	Predictions  string
}

// DefaultTopics are the stream names used when none are configured.
var DefaultTopics = Topics{
	MatchEvents:  "match_events",
	PlayerEvents: "player_events",
	Predictions:  "predictions",
}

// Service owns the pipeline and the worker pool feeding it.
type Service struct {
	mu sync.RWMutex

	// Core components
	state       repository.Store
	cache       repository.PredictionCache
	events      EventLog
	predictions PredictionStore
	classifier  scoring.Classifier
	explainer   Explainer
	publisher   broker.Publisher
	consumers   worker.ConsumerFactory
	memBroker   *broker.Memory
	deduper     dedupe.Deduper
	pipeline    *Pipeline
	pool        *worker.Pool

	// Configuration
	topics      Topics
	everyN      int
	workerCount int
	dedupeSize  int
	pollTimeout time.Duration
	now         func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service. Missing collaborators get in-process defaults:
// memory stores, an in-memory broker, the built-in classifier and an
// explainer without a completion provider.
func New(opts ...Option) *Service {
	s := &Service{
		topics:      DefaultTopics,
		everyN:      25,
		workerCount: 2,
		dedupeSize:  100_000,
		pollTimeout: 50 * time.Millisecond,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.state == nil {
		s.state = repository.NewMemoryStore()
	}
	if s.cache == nil {
		s.cache = repository.NewMemoryPredictionCache()
	}
	if s.classifier == nil {
		s.classifier = scoring.DefaultSoftmaxModel()
	}
	if s.explainer == nil {
		e := embedding.NewHashingEmbedder(embedding.DefaultDim)
		s.explainer = explain.New(e, embedding.NewIndex(e.Dim()))
	}
	if s.publisher == nil || s.consumers == nil {
		s.memBroker = broker.NewMemory()
		if s.publisher == nil {
			s.publisher = s.memBroker
		}
		if s.consumers == nil {
			s.consumers = s.memoryConsumers
		}
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	s.pipeline = &Pipeline{
		state:       s.state,
		cache:       s.cache,
		events:      s.events,
		predictions: s.predictions,
		classifier:  s.classifier,
		explainer:   s.explainer,
		publisher:   s.publisher,
		topic:       s.topics.Predictions,
		gate:        cadence.New(s.everyN),
		now:         s.now,
		logger:      s.logger.Named("pipeline"),
	}
	return s
}

func (s *Service) memoryConsumers(_ context.Context, kind normalize.Kind, _ string) (broker.Consumer, error) {
	topic, err := s.topicFor(kind)
	if err != nil {
		return nil, err
	}
	c, err := s.memBroker.Consumer(topic)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) topicFor(kind normalize.Kind) (string, error) {
	switch kind {
	case normalize.MatchKind:
		return s.topics.MatchEvents, nil
	case normalize.PlayerKind:
		return s.topics.PlayerEvents, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, kind)
	}
}

// Pipeline returns the event pipeline.
func (s *Service) Pipeline() *Pipeline { return s.pipeline }

// Start opens the consumers and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting prediction service...")

	s.pool = worker.NewPool(s.workerCount, s.consumers, s.pipeline,
		worker.WithPoolDeduper(s.deduper),
		worker.WithPoolPollTimeout(s.pollTimeout),
	)
	if err := s.pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("every_n", s.everyN),
		logger.String("model_version", s.classifier.Version()),
	)
	return nil
}

// Stop stops the workers, letting in-flight events finish.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping prediction service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}
	if s.memBroker != nil {
		_ = s.memBroker.Close()
	}

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

// PublishEvent validates raw as a record of kind and publishes it to its stream.
// Validation failures wrap normalize.ErrValidation; broker failures wrap ErrPublish.
func (s *Service) PublishEvent(ctx context.Context, kind normalize.Kind, raw []byte) error {
	if _, err := normalize.Normalize(kind, raw); err != nil {
		metrics.RecordEventDropped(string(kind), "validation")
		return err
	}
	topic, err := s.topicFor(kind)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, topic, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}
	return nil
}

// LatestPrediction returns the newest prediction of matchID: the cached
// record first, then the latest persisted one.
func (s *Service) LatestPrediction(ctx context.Context, matchID string) (types.PredictionRecord, error) {
	rec, err := s.cache.Latest(ctx, matchID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn(ctx, "prediction cache read failed", logger.String("match_id", matchID), logger.Error(err))
	}

	if s.predictions == nil {
		return types.PredictionRecord{}, ErrNotFound
	}
	p, err := s.predictions.LatestPrediction(ctx, matchID)
	if errors.Is(err, postgres.ErrNotFound) {
		return types.PredictionRecord{}, ErrNotFound
	}
	if err != nil {
		return types.PredictionRecord{}, err
	}
	return types.FromPrediction(p), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"workerCount":  s.workerCount,
		"everyN":       s.everyN,
		"dedupeSize":   s.dedupeSize,
		"modelVersion": s.classifier.Version(),
	}
	if s.started {
		stats["processedEvents"] = s.pool.Processed()
		stats["dedupeEntries"] = s.deduper.Size()
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
