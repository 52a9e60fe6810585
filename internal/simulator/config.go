// Package simulator generates synthetic live match traffic and historical
// match summaries for local runs of the prediction pipeline.
package simulator

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	Matches     int           // Concurrent matches to simulate
	EPS         float64       // Approximate events per second
	MinuteEvery time.Duration // Wall-clock length of one match minute
	MaxEvents   int           // Stop after this many events; 0 runs until cancelled
	Seed        uint64        // Random seed; 0 picks one from the clock
	OutputFile  string        // Optional JSON-lines copy of everything sent
	Verbose     bool          // Log every event
}

// Defaults.
const (
	DefaultMatches     = 3
	DefaultEPS         = 20.0
	DefaultMinuteEvery = 1500 * time.Millisecond
)

// MatchEvent is a record on the match events stream.
type MatchEvent struct {
	MatchID     string         `json:"match_id"`
	TS          string         `json:"ts"`
	Minute      int            `json:"minute"`
	EventType   string         `json:"event_type"`
	TeamSide    *string        `json:"team_side"`
	Team        *string        `json:"team"`
	Player      *string        `json:"player"`
	Payload     map[string]any `json:"payload"`
	HomeTeam    string         `json:"home_team"`
	AwayTeam    string         `json:"away_team"`
	Competition string         `json:"competition"`
}

// PlayerEvent is a record on the player events stream.
type PlayerEvent struct {
	MatchID     string         `json:"match_id"`
	TS          string         `json:"ts"`
	Minute      int            `json:"minute"`
	Player      string         `json:"player"`
	TeamSide    string         `json:"team_side"`
	Team        string         `json:"team"`
	StatType    string         `json:"stat_type"`
	Value       float64        `json:"value"`
	Payload     map[string]any `json:"payload"`
	HomeTeam    string         `json:"home_team"`
	AwayTeam    string         `json:"away_team"`
	Competition string         `json:"competition"`
}

// Stats holds run statistics.
type Stats struct {
	EventsGenerated  int
	MatchEventsSent  int
	PlayerEventsSent int
	EventsFailed     int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
