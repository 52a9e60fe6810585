// Package repository holds the cache-tier stores: live per-match state and
// the latest prediction of each match.
package repository

import (
	"context"

	"github.com/okian/matchpulse/internal/domain/model"
	"github.com/okian/matchpulse/internal/domain/types"
)

// Store owns LiveMatchState. Apply is the only writer and is serialized per
// match id, so concurrent appliers never lose an increment.
type Store interface {
	// Apply folds delta into the state of matchID (zero state when absent or
	// expired), persists the result with a refreshed TTL and returns it.
	Apply(ctx context.Context, matchID string, delta model.Delta) (model.LiveMatchState, error)

	// Get returns the current state or ErrNotFound.
	Get(ctx context.Context, matchID string) (model.LiveMatchState, error)
}

// PredictionCache keeps the most recent prediction per match.
type PredictionCache interface {
	SetLatest(ctx context.Context, rec types.PredictionRecord) error
	// Latest returns ErrNotFound when no prediction is cached.
	Latest(ctx context.Context, matchID string) (types.PredictionRecord, error)
}

// StateKey is the cache key of a match's live state.
func StateKey(matchID string) string { return "match_state:" + matchID }

// PredictionKey is the cache key of a match's latest prediction.
func PredictionKey(matchID string) string { return "match_pred:" + matchID }
