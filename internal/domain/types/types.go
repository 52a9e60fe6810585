// Package types contains wire types shared by the broker, cache and HTTP API.
package types

import (
	"time"

	"github.com/okian/matchpulse/internal/domain/model"
)

// PredictionRecord is the published, cached and served form of a prediction.
type PredictionRecord struct {
	MatchID      string              `json:"match_id"`
	TS           time.Time           `json:"ts"`
	ModelVersion string              `json:"model_version"`
	Probs        model.Probabilities `json:"probs"`
	Features     map[string]float64  `json:"features"`
	Explanation  string              `json:"explanation"`
	Citations    []model.Citation    `json:"rag_citations"`
}

// FromPrediction converts a domain prediction to its wire form.
func FromPrediction(p model.Prediction) PredictionRecord {
	citations := p.Citations
	if citations == nil {
		citations = []model.Citation{}
	}
	return PredictionRecord{
		MatchID:      p.MatchID,
		TS:           p.TS.UTC(),
		ModelVersion: p.ModelVersion,
		Probs:        p.Probs,
		Features:     p.Features,
		Explanation:  p.Explanation,
		Citations:    citations,
	}
}

// Prediction converts the wire form back to a domain prediction.
func (r PredictionRecord) Prediction() model.Prediction {
	return model.Prediction{
		MatchID:      r.MatchID,
		TS:           r.TS,
		ModelVersion: r.ModelVersion,
		Probs:        r.Probs,
		Features:     r.Features,
		Explanation:  r.Explanation,
		Citations:    r.Citations,
	}
}
