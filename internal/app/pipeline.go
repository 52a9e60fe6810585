package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/adapters/mq/worker"
	"github.com/okian/matchpulse/internal/adapters/repository"
	"github.com/okian/matchpulse/internal/domain/cadence"
	"github.com/okian/matchpulse/internal/domain/explain"
	"github.com/okian/matchpulse/internal/domain/features"
	"github.com/okian/matchpulse/internal/domain/model"
	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/internal/domain/scoring"
	"github.com/okian/matchpulse/internal/domain/types"
	"github.com/okian/matchpulse/pkg/logger"
	"github.com/okian/matchpulse/pkg/metrics"
)

// Outcome is the terminal state of one handled event.
type Outcome string

// Event outcomes.
const (
	OutcomeDropped   Outcome = "dropped"
	OutcomeSkipped   Outcome = "skipped"
	OutcomePredicted Outcome = "predicted"
	OutcomeFailed    Outcome = "failed"
)

// EventLog appends inbound events to durable storage.
type EventLog interface {
	EnsureMatch(ctx context.Context, matchID string, id model.MatchIdentity) error
	InsertMatchEvent(ctx context.Context, ev *model.MatchEvent) error
	InsertPlayerEvent(ctx context.Context, ev *model.PlayerEvent) error
}

// PredictionStore persists predictions and reads back the latest one.
type PredictionStore interface {
	InsertPrediction(ctx context.Context, p model.Prediction) (int64, error)
	LatestPrediction(ctx context.Context, matchID string) (model.Prediction, error)
}

// Explainer phrases a prediction. It never fails; degraded results carry a cause.
type Explainer interface {
	Explain(ctx context.Context, s model.LiveMatchState, p model.Probabilities) explain.Explanation
}

// Pipeline runs one inbound record through normalize, state, cadence and,
// when due, the prediction stages.
type Pipeline struct {
	state       repository.Store
	cache       repository.PredictionCache
	events      EventLog
	predictions PredictionStore
	classifier  scoring.Classifier
	explainer   Explainer
	publisher   broker.Publisher
	topic       string
	gate        cadence.Gate
	now         func() time.Time
	logger      logger.Logger
}

// Handle implements worker.Handler.
func (p *Pipeline) Handle(ctx context.Context, kind normalize.Kind, raw []byte) error {
	_, err := p.Process(ctx, kind, raw)
	return err
}

// Process handles raw and reports where it ended. State is never rolled
// back: failures after the state update are returned but the event counts
// as processed.
func (p *Pipeline) Process(ctx context.Context, kind normalize.Kind, raw []byte) (Outcome, error) {
	rec, err := normalize.Normalize(kind, raw)
	if err != nil {
		metrics.RecordEventDropped(string(kind), "validation")
		p.logger.Warn(ctx, "dropping invalid record", logger.String("kind", string(kind)), logger.Error(err))
		return OutcomeDropped, nil
	}
	matchID := rec.MatchID()

	p.persistEvent(ctx, rec)

	start := time.Now()
	st, err := p.state.Apply(ctx, matchID, rec.Delta)
	metrics.RecordStageLatency("apply", msSince(start))
	if errors.Is(err, repository.ErrLostUpdate) {
		metrics.RecordPredictionFailure("apply")
		p.logger.Error(ctx, "lost state update", logger.String("match_id", matchID), logger.Error(err))
		return OutcomeFailed, err
	}
	if err != nil {
		metrics.RecordPredictionFailure("apply")
		return OutcomeFailed, fmt.Errorf("%w: apply state of %s: %v", worker.ErrRedeliver, matchID, err)
	}
	metrics.RecordEventProcessed(string(kind))

	if !p.gate.ShouldTrigger(st) {
		return OutcomeSkipped, nil
	}
	if err := p.predict(ctx, st); err != nil {
		return OutcomeFailed, err
	}
	return OutcomePredicted, nil
}

// persistEvent appends the record; failures are logged and never block state.
func (p *Pipeline) persistEvent(ctx context.Context, rec normalize.Record) {
	if p.events == nil {
		return
	}
	matchID := rec.MatchID()
	var err error
	switch {
	case rec.Match != nil:
		if err = p.events.EnsureMatch(ctx, matchID, rec.Match.Identity); err == nil {
			err = p.events.InsertMatchEvent(ctx, rec.Match)
		}
	case rec.Player != nil:
		if err = p.events.EnsureMatch(ctx, matchID, rec.Player.Identity); err == nil {
			err = p.events.InsertPlayerEvent(ctx, rec.Player)
		}
	}
	if err != nil {
		metrics.RecordPredictionFailure("event_log")
		p.logger.Warn(ctx, "event not persisted", logger.String("match_id", matchID), logger.Error(err))
	}
}

// predict runs features, inference, explanation, persistence and publication for st.
func (p *Pipeline) predict(ctx context.Context, st model.LiveMatchState) error {
	row := features.Derive(st)

	start := time.Now()
	probs, err := p.classifier.Predict(ctx, row)
	metrics.RecordStageLatency("infer", msSince(start))
	if err != nil {
		metrics.RecordPredictionFailure("infer")
		p.logger.Error(ctx, "inference failed", logger.String("match_id", st.MatchID), logger.Error(err))
		return err
	}

	start = time.Now()
	exp := p.explainer.Explain(ctx, st, probs)
	metrics.RecordStageLatency("explain", msSince(start))
	if exp.Degraded != nil {
		metrics.RecordExplanationDegraded()
		p.logger.Warn(ctx, "explanation degraded", logger.String("match_id", st.MatchID), logger.Error(exp.Degraded))
	}

	pred := model.Prediction{
		MatchID:      st.MatchID,
		TS:           p.now().UTC(),
		ModelVersion: p.classifier.Version(),
		Probs:        probs,
		Features:     row.Map(),
		Explanation:  exp.Text,
		Citations:    exp.Citations,
	}

	start = time.Now()
	if p.predictions != nil {
		if _, err := p.predictions.InsertPrediction(ctx, pred); err != nil {
			metrics.RecordPredictionFailure("persist")
			p.logger.Error(ctx, "prediction not persisted", logger.String("match_id", st.MatchID), logger.Error(err))
			return err
		}
	}
	metrics.RecordStageLatency("persist", msSince(start))

	record := types.FromPrediction(pred)
	if err := p.cache.SetLatest(ctx, record); err != nil {
		p.logger.Warn(ctx, "latest prediction not cached", logger.String("match_id", st.MatchID), logger.Error(err))
	}

	payload, err := json.Marshal(record)
	if err != nil {
		metrics.RecordPredictionFailure("publish")
		return fmt.Errorf("encode prediction: %w", err)
	}
	if err := p.publisher.Publish(ctx, p.topic, payload); err != nil {
		metrics.RecordPredictionFailure("publish")
		p.logger.Error(ctx, "prediction not published", logger.String("match_id", st.MatchID), logger.Error(err))
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	metrics.RecordPredictionEmitted()
	p.logger.Info(ctx, "prediction emitted",
		logger.String("match_id", st.MatchID),
		logger.Int64("n_events", st.NEvents),
		logger.Int("minute", st.Minute),
		logger.Float64("home_win", probs.HomeWin),
		logger.Float64("draw", probs.Draw),
		logger.Float64("away_win", probs.AwayWin),
	)
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
