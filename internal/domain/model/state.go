package model

import "time"

// Default team identity used until an event names the teams.
const (
	DefaultHomeTeam    = "HOME"
	DefaultAwayTeam    = "AWAY"
	DefaultCompetition = "UEFA"
)

// Counter names a cumulative per-side statistic.
type Counter string

// Counters tracked per side.
const (
	CounterGoals   Counter = "goals"
	CounterShots   Counter = "shots"
	CounterCorners Counter = "corners"
	CounterFouls   Counter = "fouls"
	CounterXG      Counter = "xg"
)

// Contribution adds Amount to Counter on Side.
type Contribution struct {
	Counter Counter
	Side    Side
	Amount  float64
}

// Delta is the typed effect of one event on live state. Applying it always
// bumps the event counter by one and folds Minute in with max.
type Delta struct {
	Minute        int
	Contributions []Contribution
	Identity      MatchIdentity
	ObservedAt    time.Time
}

// SideTotals holds the cumulative counters of one team.
type SideTotals struct {
	Goals   int     `json:"goals"`
	Shots   int     `json:"shots"`
	Corners int     `json:"corners"`
	Fouls   int     `json:"fouls"`
	XG      float64 `json:"xg"`
}

// LiveMatchState is the running aggregate of one match.
type LiveMatchState struct {
	MatchID     string     `json:"match_id"`
	HomeTeam    string     `json:"home_team"`
	AwayTeam    string     `json:"away_team"`
	Competition string     `json:"competition"`
	Minute      int        `json:"minute"`
	Home        SideTotals `json:"home"`
	Away        SideTotals `json:"away"`
	NEvents     int64      `json:"n_events"`
	Version     int64      `json:"version"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewLiveMatchState returns the zero state of a match seen for the first time.
func NewLiveMatchState(matchID string) LiveMatchState {
	return LiveMatchState{
		MatchID:     matchID,
		HomeTeam:    DefaultHomeTeam,
		AwayTeam:    DefaultAwayTeam,
		Competition: DefaultCompetition,
	}
}

// Totals returns a pointer to the counters of side, or nil for SideNone.
func (s *LiveMatchState) Totals(side Side) *SideTotals {
	switch side {
	case SideHome:
		return &s.Home
	case SideAway:
		return &s.Away
	default:
		return nil
	}
}

// Merge folds d into s and returns the new state. Counters add, minute takes
// the running maximum, n_events and version advance by one. Team identity is
// taken from the delta only on the first event of the match.
func Merge(s LiveMatchState, d Delta) LiveMatchState {
	if s.NEvents == 0 {
		if d.Identity.HomeTeam != "" {
			s.HomeTeam = d.Identity.HomeTeam
		}
		if d.Identity.AwayTeam != "" {
			s.AwayTeam = d.Identity.AwayTeam
		}
		if d.Identity.Competition != "" {
			s.Competition = d.Identity.Competition
		}
	}
	if d.Minute > s.Minute {
		s.Minute = d.Minute
	}
	for _, c := range d.Contributions {
		t := s.Totals(c.Side)
		if t == nil || c.Amount < 0 {
			continue
		}
		switch c.Counter {
		case CounterGoals:
			t.Goals += int(c.Amount)
		case CounterShots:
			t.Shots += int(c.Amount)
		case CounterCorners:
			t.Corners += int(c.Amount)
		case CounterFouls:
			t.Fouls += int(c.Amount)
		case CounterXG:
			t.XG += c.Amount
		}
	}
	s.NEvents++
	s.Version++
	if !d.ObservedAt.IsZero() {
		s.UpdatedAt = d.ObservedAt
	}
	return s
}
