// Package cadence decides which state mutations trigger a prediction.
package cadence

import "github.com/okian/matchpulse/internal/domain/model"

// Gate triggers on every EveryN-th applied event of a match.
type Gate struct {
	EveryN int64
}

// New returns a gate for the given cadence. Non-positive values never trigger.
func New(everyN int) Gate {
	return Gate{EveryN: int64(everyN)}
}

// ShouldTrigger reports whether the post-merge state lands on the cadence.
// The answer is only exact when state updates for a match are serialized.
func (g Gate) ShouldTrigger(s model.LiveMatchState) bool {
	return g.EveryN > 0 && s.NEvents > 0 && s.NEvents%g.EveryN == 0
}
