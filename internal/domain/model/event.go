// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// Side identifies which team an event is attributed to.
type Side string

// Known sides. SideNone covers missing or unrecognised values.
const (
	SideHome Side = "home"
	SideAway Side = "away"
	SideNone Side = ""
)

// ParseSide maps a raw team_side value to a Side.
func ParseSide(raw string) Side {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "home":
		return SideHome
	case "away":
		return SideAway
	default:
		return SideNone
	}
}

// MatchIdentity carries the optional team names sent with every event.
// Only the first event of a match decides them.
type MatchIdentity struct {
	HomeTeam    string
	AwayTeam    string
	Competition string
}

// MatchEvent is an immutable match-level fact.
type MatchEvent struct {
	MatchID   string
	TS        time.Time
	Minute    int
	EventType string
	Side      Side
	Team      string
	Player    string
	Payload   map[string]any
	Identity  MatchIdentity
}

// PlayerEvent is an immutable player-level fact.
type PlayerEvent struct {
	MatchID  string
	TS       time.Time
	Minute   int
	Player   string
	Side     Side
	Team     string
	StatType string
	Value    float64
	Payload  map[string]any
	Identity MatchIdentity
}
