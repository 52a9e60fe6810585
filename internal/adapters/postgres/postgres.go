// Package postgres persists matches, events, predictions and retrieval
// documents in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/matchpulse/internal/domain/embedding"
	"github.com/okian/matchpulse/internal/domain/model"
)

const pingTimeout = 5 * time.Second

// DatabasePool is the subset of pgxpool.Pool used by the repository.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Connect opens a pool for dsn and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return pool, nil
}

// Repository is the relational store of the pipeline.
type Repository struct {
	db DatabasePool
}

// New wraps a pool.
func New(db DatabasePool) *Repository {
	return &Repository{db: db}
}

const ensureMatchSQL = `INSERT INTO matches (id, home_team, away_team, competition, status)
VALUES ($1, $2, $3, $4, 'live')
ON CONFLICT (id) DO NOTHING`

// EnsureMatch inserts the match row on first sight.
func (r *Repository) EnsureMatch(ctx context.Context, matchID string, id model.MatchIdentity) error {
	home, away, comp := id.HomeTeam, id.AwayTeam, id.Competition
	if home == "" {
		home = model.DefaultHomeTeam
	}
	if away == "" {
		away = model.DefaultAwayTeam
	}
	if comp == "" {
		comp = model.DefaultCompetition
	}
	if _, err := r.db.Exec(ctx, ensureMatchSQL, matchID, home, away, comp); err != nil {
		return fmt.Errorf("ensure match %s: %w", matchID, err)
	}
	return nil
}

const insertMatchEventSQL = `INSERT INTO match_events (match_id, ts, minute, event_type, team, player, payload)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7)`

// InsertMatchEvent appends a match event.
func (r *Repository) InsertMatchEvent(ctx context.Context, ev *model.MatchEvent) error {
	payload, err := encodeJSON(ev.Payload, "{}")
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, insertMatchEventSQL,
		ev.MatchID, ev.TS, ev.Minute, ev.EventType, ev.Team, ev.Player, payload); err != nil {
		return fmt.Errorf("insert match event %s: %w", ev.MatchID, err)
	}
	return nil
}

const insertPlayerEventSQL = `INSERT INTO player_events (match_id, ts, player, team, stat_type, value, payload)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`

// InsertPlayerEvent appends a player event.
func (r *Repository) InsertPlayerEvent(ctx context.Context, ev *model.PlayerEvent) error {
	payload, err := encodeJSON(ev.Payload, "{}")
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, insertPlayerEventSQL,
		ev.MatchID, ev.TS, ev.Player, ev.Team, ev.StatType, ev.Value, payload); err != nil {
		return fmt.Errorf("insert player event %s: %w", ev.MatchID, err)
	}
	return nil
}

const insertPredictionSQL = `INSERT INTO predictions
(match_id, ts, model_version, p_home_win, p_draw, p_away_win, features, explanation, rag_citations)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`

// InsertPrediction appends a prediction and returns its id.
func (r *Repository) InsertPrediction(ctx context.Context, p model.Prediction) (int64, error) {
	features, err := encodeJSON(p.Features, "{}")
	if err != nil {
		return 0, err
	}
	citations, err := encodeJSON(p.Citations, "[]")
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.db.QueryRow(ctx, insertPredictionSQL,
		p.MatchID, p.TS, p.ModelVersion, p.Probs.HomeWin, p.Probs.Draw, p.Probs.AwayWin,
		features, p.Explanation, citations).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert prediction %s: %w", p.MatchID, err)
	}
	return id, nil
}

const latestPredictionSQL = `SELECT match_id, ts, model_version, p_home_win, p_draw, p_away_win,
	features, COALESCE(explanation, ''), rag_citations
FROM predictions
WHERE match_id = $1
ORDER BY ts DESC, id DESC
LIMIT 1`

// LatestPrediction returns the most recent persisted prediction of matchID.
func (r *Repository) LatestPrediction(ctx context.Context, matchID string) (model.Prediction, error) {
	var (
		p                   model.Prediction
		features, citations []byte
	)
	err := r.db.QueryRow(ctx, latestPredictionSQL, matchID).Scan(
		&p.MatchID, &p.TS, &p.ModelVersion, &p.Probs.HomeWin, &p.Probs.Draw, &p.Probs.AwayWin,
		&features, &p.Explanation, &citations)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Prediction{}, ErrNotFound
	}
	if err != nil {
		return model.Prediction{}, fmt.Errorf("latest prediction %s: %w", matchID, err)
	}
	if err := json.Unmarshal(features, &p.Features); err != nil {
		return model.Prediction{}, fmt.Errorf("decode features %s: %w", matchID, err)
	}
	p.Citations = []model.Citation{}
	if len(citations) > 0 {
		if err := json.Unmarshal(citations, &p.Citations); err != nil {
			return model.Prediction{}, fmt.Errorf("decode citations %s: %w", matchID, err)
		}
	}
	return p, nil
}

const countDocsSQL = `SELECT count(*) FROM rag_docs`

// CountDocs returns the number of stored retrieval documents.
func (r *Repository) CountDocs(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, countDocsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count docs: %w", err)
	}
	return n, nil
}

const loadDocsSQL = `SELECT id, doc_type, COALESCE(match_id, ''), text, meta, embedding
FROM rag_docs
WHERE embedding IS NOT NULL
ORDER BY id`

// LoadDocs reads every embedded document in id order.
func (r *Repository) LoadDocs(ctx context.Context) ([]embedding.Doc, error) {
	rows, err := r.db.Query(ctx, loadDocsSQL)
	if err != nil {
		return nil, fmt.Errorf("load docs: %w", err)
	}
	defer rows.Close()

	var docs []embedding.Doc
	for rows.Next() {
		var (
			d    embedding.Doc
			meta []byte
		)
		if err := rows.Scan(&d.ID, &d.Kind, &d.MatchID, &d.Text, &meta, &d.Vector); err != nil {
			return nil, fmt.Errorf("scan doc: %w", err)
		}
		d.Meta = map[string]any{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &d.Meta); err != nil {
				return nil, fmt.Errorf("decode meta of doc %d: %w", d.ID, err)
			}
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load docs: %w", err)
	}
	return docs, nil
}

const insertDocSQL = `INSERT INTO rag_docs (doc_type, match_id, text, meta, embedding)
VALUES ($1, NULLIF($2, ''), $3, $4, $5)`

// InsertDocs stores docs in one transaction.
func (r *Repository) InsertDocs(ctx context.Context, docs []embedding.Doc) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	for _, d := range docs {
		meta, encErr := encodeJSON(d.Meta, "{}")
		if encErr != nil {
			return encErr
		}
		if _, err = tx.Exec(ctx, insertDocSQL, d.Kind, d.MatchID, d.Text, meta, d.Vector); err != nil {
			return fmt.Errorf("insert doc: %w", err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// encodeJSON marshals v to a JSON string; nil values use empty.
func encodeJSON(v any, empty string) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json: %w", err)
	}
	if string(raw) == "null" {
		return empty, nil
	}
	return string(raw), nil
}
