// Package features maps live match state to the classifier's feature row.
package features

import (
	"math"

	"github.com/okian/matchpulse/internal/domain/model"
)

// Names lists the feature columns in the order the classifier expects.
var Names = []string{
	"minute",
	"goal_diff",
	"xg_diff",
	"shot_diff",
	"corner_diff",
	"foul_diff",
	"home_xg",
	"away_xg",
	"home_shots",
	"away_shots",
	"uncertainty",
}

// Width is the number of features in a row.
const Width = 11

const (
	maxMinute      = 95.0
	uncertaintyExp = -2.0
)

// Row is the flat numeric summary of a match state.
type Row struct {
	Minute      float64
	GoalDiff    float64
	XGDiff      float64
	ShotDiff    float64
	CornerDiff  float64
	FoulDiff    float64
	HomeXG      float64
	AwayXG      float64
	HomeShots   float64
	AwayShots   float64
	Uncertainty float64
}

// Derive computes the feature row of s. It is pure and total.
func Derive(s model.LiveMatchState) Row {
	minute := float64(s.Minute)
	return Row{
		Minute:      minute,
		GoalDiff:    float64(s.Home.Goals - s.Away.Goals),
		XGDiff:      s.Home.XG - s.Away.XG,
		ShotDiff:    float64(s.Home.Shots - s.Away.Shots),
		CornerDiff:  float64(s.Home.Corners - s.Away.Corners),
		FoulDiff:    float64(s.Home.Fouls - s.Away.Fouls),
		HomeXG:      s.Home.XG,
		AwayXG:      s.Away.XG,
		HomeShots:   float64(s.Home.Shots),
		AwayShots:   float64(s.Away.Shots),
		Uncertainty: Uncertainty(minute),
	}
}

// Uncertainty decays from 1 at kickoff to exp(-2) at minute 95 and stays there.
func Uncertainty(minute float64) float64 {
	clamped := math.Min(math.Max(minute, 0), maxMinute)
	return math.Exp(uncertaintyExp * clamped / maxMinute)
}

// Vector returns the row in canonical column order.
func (r Row) Vector() []float64 {
	return []float64{
		r.Minute, r.GoalDiff, r.XGDiff, r.ShotDiff, r.CornerDiff, r.FoulDiff,
		r.HomeXG, r.AwayXG, r.HomeShots, r.AwayShots, r.Uncertainty,
	}
}

// Map returns the row keyed by column name, as stored with a prediction.
func (r Row) Map() map[string]float64 {
	v := r.Vector()
	out := make(map[string]float64, Width)
	for i, name := range Names {
		out[name] = v[i]
	}
	return out
}

// FromMap rebuilds a row from a stored feature map. Missing columns are zero.
func FromMap(m map[string]float64) Row {
	return Row{
		Minute:      m["minute"],
		GoalDiff:    m["goal_diff"],
		XGDiff:      m["xg_diff"],
		ShotDiff:    m["shot_diff"],
		CornerDiff:  m["corner_diff"],
		FoulDiff:    m["foul_diff"],
		HomeXG:      m["home_xg"],
		AwayXG:      m["away_xg"],
		HomeShots:   m["home_shots"],
		AwayShots:   m["away_shots"],
		Uncertainty: m["uncertainty"],
	}
}
