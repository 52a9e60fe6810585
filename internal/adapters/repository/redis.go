package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/matchpulse/internal/domain/model"
	"github.com/okian/matchpulse/internal/domain/types"
	"github.com/okian/matchpulse/pkg/logger"
	"github.com/okian/matchpulse/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

// Connect opens a Redis client from a redis:// URL and checks it with PING.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps live state as JSON under match_state:{id}. Apply runs an
// optimistic WATCH/MULTI transaction and retries with the re-read state on
// conflict. Appliers inside one process queue on a per-match mutex first so
// conflicts only come from other processes.
type RedisStore struct {
	client redis.UniversalClient
	cfg    settings
	locks  *keyedMutex

	// beforeCommit runs between read and commit; tests use it to inject conflicts.
	beforeCommit func(ctx context.Context, matchID string)
}

// NewRedisStore creates a Redis-backed state store.
func NewRedisStore(client redis.UniversalClient, opts ...Option) *RedisStore {
	cfg := newSettings(opts)
	return &RedisStore{client: client, cfg: cfg, locks: newKeyedMutex(cfg.shards)}
}

// Apply merges delta into the state of matchID.
func (s *RedisStore) Apply(ctx context.Context, matchID string, delta model.Delta) (model.LiveMatchState, error) {
	unlock := s.locks.Lock(matchID)
	defer unlock()

	key := StateKey(matchID)
	var next model.LiveMatchState
	txf := func(tx *redis.Tx) error {
		cur, err := s.read(ctx, tx, matchID)
		if err != nil {
			return err
		}
		next = model.Merge(cur, delta)
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		if s.beforeCommit != nil {
			s.beforeCommit(ctx, matchID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.cfg.ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt <= s.cfg.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return model.LiveMatchState{}, fmt.Errorf("apply %s: %w", matchID, err)
		}
		metrics.RecordStateRetry()
	}

	metrics.RecordStateLostUpdate()
	s.cfg.log.Error(ctx, "live state update lost",
		logger.String("match_id", matchID),
		logger.Int("attempts", s.cfg.maxRetries+1))
	return model.LiveMatchState{}, fmt.Errorf("%w: match %s after %d attempts", ErrLostUpdate, matchID, s.cfg.maxRetries+1)
}

// read loads the state; a missing, expired or unreadable blob is a fresh match.
func (s *RedisStore) read(ctx context.Context, c stringGetter, matchID string) (model.LiveMatchState, error) {
	raw, err := c.Get(ctx, StateKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.NewLiveMatchState(matchID), nil
	}
	if err != nil {
		return model.LiveMatchState{}, err
	}
	var st model.LiveMatchState
	if err := json.Unmarshal(raw, &st); err != nil {
		s.cfg.log.Warn(ctx, "discarding unreadable live state",
			logger.String("match_id", matchID), logger.Error(err))
		return model.NewLiveMatchState(matchID), nil
	}
	return st, nil
}

// Get returns the live state of matchID.
func (s *RedisStore) Get(ctx context.Context, matchID string) (model.LiveMatchState, error) {
	raw, err := s.client.Get(ctx, StateKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.LiveMatchState{}, ErrNotFound
	}
	if err != nil {
		return model.LiveMatchState{}, fmt.Errorf("get state %s: %w", matchID, err)
	}
	var st model.LiveMatchState
	if err := json.Unmarshal(raw, &st); err != nil {
		return model.LiveMatchState{}, fmt.Errorf("decode state %s: %w", matchID, err)
	}
	return st, nil
}

// RedisPredictionCache stores the latest prediction as JSON under match_pred:{id}.
type RedisPredictionCache struct {
	client redis.UniversalClient
	cfg    settings
}

// NewRedisPredictionCache creates a Redis-backed prediction cache.
func NewRedisPredictionCache(client redis.UniversalClient, opts ...Option) *RedisPredictionCache {
	return &RedisPredictionCache{client: client, cfg: newSettings(opts)}
}

// SetLatest replaces the cached prediction of rec.MatchID.
func (c *RedisPredictionCache) SetLatest(ctx context.Context, rec types.PredictionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}
	if err := c.client.Set(ctx, PredictionKey(rec.MatchID), raw, c.cfg.ttl).Err(); err != nil {
		return fmt.Errorf("cache prediction %s: %w", rec.MatchID, err)
	}
	return nil
}

// Latest returns the cached prediction of matchID.
func (c *RedisPredictionCache) Latest(ctx context.Context, matchID string) (types.PredictionRecord, error) {
	raw, err := c.client.Get(ctx, PredictionKey(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.PredictionRecord{}, ErrNotFound
	}
	if err != nil {
		return types.PredictionRecord{}, fmt.Errorf("read prediction %s: %w", matchID, err)
	}
	var rec types.PredictionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.PredictionRecord{}, fmt.Errorf("decode prediction %s: %w", matchID, err)
	}
	return rec, nil
}
