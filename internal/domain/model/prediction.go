package model

import (
	"math"
	"time"
)

// ProbabilityTolerance bounds how far the three class probabilities may drift from 1.
const ProbabilityTolerance = 1e-6

// Probabilities holds the three outcome class probabilities.
type Probabilities struct {
	HomeWin float64 `json:"HOME_WIN"`
	Draw    float64 `json:"DRAW"`
	AwayWin float64 `json:"AWAY_WIN"`
}

// Sum returns HomeWin + Draw + AwayWin.
func (p Probabilities) Sum() float64 { return p.HomeWin + p.Draw + p.AwayWin }

// Valid reports whether p is a finite, non-negative distribution summing to 1 within tol.
func (p Probabilities) Valid(tol float64) bool {
	for _, v := range []float64{p.HomeWin, p.Draw, p.AwayWin} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return math.Abs(p.Sum()-1) <= tol
}

// Citation references a retrieved document used for an explanation.
type Citation struct {
	DocID   int64          `json:"doc_id"`
	DocType string         `json:"doc_type"`
	Meta    map[string]any `json:"meta"`
}

// Prediction is one append-only cadence result.
type Prediction struct {
	MatchID      string
	TS           time.Time
	ModelVersion string
	Probs        Probabilities
	Features     map[string]float64
	Explanation  string
	Citations    []Citation
}
