package repository

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/okian/matchpulse/internal/domain/model"
	"github.com/okian/matchpulse/internal/domain/types"
)

// MemoryStore keeps live state in process memory. Each shard lock covers the
// whole read-merge-write of Apply, which serializes appliers per match.
// Expired entries are treated as absent and evicted lazily.
type MemoryStore struct {
	cfg    settings
	shards []memShard
}

type memShard struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	state   model.LiveMatchState
	expires time.Time
}

// NewMemoryStore creates an in-memory state store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := newSettings(opts)
	s := &MemoryStore{cfg: cfg, shards: make([]memShard, cfg.shards)}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]memEntry)
	}
	return s
}

func (s *MemoryStore) shard(matchID string) *memShard {
	return &s.shards[xxhash.Sum64String(matchID)%uint64(len(s.shards))]
}

// Apply merges delta into the state of matchID.
func (s *MemoryStore) Apply(ctx context.Context, matchID string, delta model.Delta) (model.LiveMatchState, error) {
	if err := ctx.Err(); err != nil {
		return model.LiveMatchState{}, err
	}
	sh := s.shard(matchID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := s.cfg.now()
	cur := model.NewLiveMatchState(matchID)
	if e, ok := sh.entries[matchID]; ok && now.Before(e.expires) {
		cur = e.state
	}
	next := model.Merge(cur, delta)
	sh.entries[matchID] = memEntry{state: next, expires: now.Add(s.cfg.ttl)}
	return next, nil
}

// Get returns the live state of matchID.
func (s *MemoryStore) Get(_ context.Context, matchID string) (model.LiveMatchState, error) {
	sh := s.shard(matchID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[matchID]
	if !ok {
		return model.LiveMatchState{}, ErrNotFound
	}
	if !s.cfg.now().Before(e.expires) {
		delete(sh.entries, matchID)
		return model.LiveMatchState{}, ErrNotFound
	}
	return e.state, nil
}

// MemoryPredictionCache keeps the latest prediction per match in memory.
type MemoryPredictionCache struct {
	cfg     settings
	mu      sync.RWMutex
	entries map[string]memPrediction
}

type memPrediction struct {
	rec     types.PredictionRecord
	expires time.Time
}

// NewMemoryPredictionCache creates an in-memory prediction cache.
func NewMemoryPredictionCache(opts ...Option) *MemoryPredictionCache {
	return &MemoryPredictionCache{cfg: newSettings(opts), entries: make(map[string]memPrediction)}
}

// SetLatest replaces the cached prediction of rec.MatchID.
func (c *MemoryPredictionCache) SetLatest(_ context.Context, rec types.PredictionRecord) error {
	c.mu.Lock()
	c.entries[rec.MatchID] = memPrediction{rec: rec, expires: c.cfg.now().Add(c.cfg.ttl)}
	c.mu.Unlock()
	return nil
}

// Latest returns the cached prediction of matchID.
func (c *MemoryPredictionCache) Latest(_ context.Context, matchID string) (types.PredictionRecord, error) {
	c.mu.RLock()
	e, ok := c.entries[matchID]
	c.mu.RUnlock()
	if !ok || !c.cfg.now().Before(e.expires) {
		return types.PredictionRecord{}, ErrNotFound
	}
	return e.rec, nil
}
