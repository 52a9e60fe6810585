package postgres

import (
	"context"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS matches (
		id               TEXT PRIMARY KEY,
		home_team        TEXT NOT NULL,
		away_team        TEXT NOT NULL,
		competition      TEXT,
		kickoff_ts       TIMESTAMPTZ,
		status           TEXT NOT NULL DEFAULT 'scheduled',
		final_home_goals INTEGER,
		final_away_goals INTEGER,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS match_events (
		id         BIGSERIAL PRIMARY KEY,
		match_id   TEXT NOT NULL REFERENCES matches(id),
		ts         TIMESTAMPTZ NOT NULL,
		minute     INTEGER,
		event_type TEXT NOT NULL,
		team       TEXT,
		player     TEXT,
		payload    JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_match_events_match_ts ON match_events (match_id, ts)`,
	`CREATE TABLE IF NOT EXISTS player_events (
		id         BIGSERIAL PRIMARY KEY,
		match_id   TEXT NOT NULL,
		ts         TIMESTAMPTZ NOT NULL,
		player     TEXT NOT NULL,
		team       TEXT,
		stat_type  TEXT NOT NULL,
		value      DOUBLE PRECISION NOT NULL DEFAULT 0,
		payload    JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_player_events_match_id ON player_events (match_id)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id            BIGSERIAL PRIMARY KEY,
		match_id      TEXT NOT NULL,
		ts            TIMESTAMPTZ NOT NULL,
		model_version TEXT NOT NULL,
		p_home_win    DOUBLE PRECISION NOT NULL,
		p_draw        DOUBLE PRECISION NOT NULL,
		p_away_win    DOUBLE PRECISION NOT NULL,
		features      JSONB NOT NULL DEFAULT '{}',
		explanation   TEXT,
		rag_citations JSONB NOT NULL DEFAULT '[]'
	)`,
	`CREATE INDEX IF NOT EXISTS ix_predictions_match_ts ON predictions (match_id, ts DESC)`,
	`CREATE TABLE IF NOT EXISTS rag_docs (
		id         BIGSERIAL PRIMARY KEY,
		doc_type   TEXT NOT NULL,
		match_id   TEXT,
		text       TEXT NOT NULL,
		meta       JSONB NOT NULL DEFAULT '{}',
		embedding  DOUBLE PRECISION[],
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables and indexes used by the pipeline.
func (r *Repository) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
