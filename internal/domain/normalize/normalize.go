// Package normalize validates inbound match and player records and maps them
// to typed state deltas.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/okian/matchpulse/internal/domain/model"
)

// Kind is the declared stream of a raw record.
type Kind string

// Record kinds.
const (
	MatchKind  Kind = "match"
	PlayerKind Kind = "player"
)

// Record is a validated inbound event. Exactly one of Match and Player is set.
type Record struct {
	Kind   Kind
	Match  *model.MatchEvent
	Player *model.PlayerEvent
	Delta  model.Delta
}

// MatchID returns the match the record belongs to.
func (r Record) MatchID() string {
	if r.Match != nil {
		return r.Match.MatchID
	}
	if r.Player != nil {
		return r.Player.MatchID
	}
	return ""
}

// Counters fed by match event kinds; other kinds only count as events.
var eventCounters = map[string]model.Counter{
	"goal":   model.CounterGoals,
	"shot":   model.CounterShots,
	"corner": model.CounterCorners,
	"foul":   model.CounterFouls,
}

const statXG = "xg"

// Normalize decodes raw as a record of kind and derives its delta.
// Missing or mistyped optional fields fall back to zero values; only a
// missing required field is an error, always wrapping ErrValidation.
func Normalize(kind Kind, raw []byte) (Record, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Record{}, ErrMalformedRecord
	}
	switch kind {
	case MatchKind:
		return normalizeMatch(fields)
	case PlayerKind:
		return normalizePlayer(fields)
	default:
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

type common struct {
	matchID  string
	ts       time.Time
	minute   int
	side     model.Side
	team     string
	payload  map[string]any
	identity model.MatchIdentity
}

func parseCommon(fields map[string]any) (common, error) {
	var c common
	c.matchID = toString(fields["match_id"])
	if c.matchID == "" {
		return c, ErrMissingMatchID
	}
	rawTS := toString(fields["ts"])
	if rawTS == "" {
		return c, ErrMissingTimestamp
	}
	ts, ok := parseTimestamp(rawTS)
	if !ok {
		return c, fmt.Errorf("%w: %q", ErrInvalidTimestamp, rawTS)
	}
	c.ts = ts
	c.minute = max(toInt(fields["minute"]), 0)
	side, _ := fields["team_side"].(string)
	c.side = model.ParseSide(side)
	c.team = toString(fields["team"])
	c.payload = toPayload(fields["payload"])
	c.identity = model.MatchIdentity{
		HomeTeam:    toString(fields["home_team"]),
		AwayTeam:    toString(fields["away_team"]),
		Competition: toString(fields["competition"]),
	}
	return c, nil
}

func normalizeMatch(fields map[string]any) (Record, error) {
	c, err := parseCommon(fields)
	if err != nil {
		return Record{}, err
	}
	eventType := strings.ToLower(toString(fields["event_type"]))
	if eventType == "" {
		return Record{}, ErrMissingKind
	}
	ev := &model.MatchEvent{
		MatchID:   c.matchID,
		TS:        c.ts,
		Minute:    c.minute,
		EventType: eventType,
		Side:      c.side,
		Team:      c.team,
		Player:    toString(fields["player"]),
		Payload:   c.payload,
		Identity:  c.identity,
	}

	var contribs []model.Contribution
	if c.side != model.SideNone {
		if counter, ok := eventCounters[eventType]; ok {
			contribs = append(contribs, model.Contribution{Counter: counter, Side: c.side, Amount: 1})
		}
		if xg := toFloat(c.payload["xg"]); xg > 0 {
			contribs = append(contribs, model.Contribution{Counter: model.CounterXG, Side: c.side, Amount: xg})
		}
	}

	return Record{
		Kind:  MatchKind,
		Match: ev,
		Delta: model.Delta{Minute: c.minute, Contributions: contribs, Identity: c.identity, ObservedAt: c.ts},
	}, nil
}

func normalizePlayer(fields map[string]any) (Record, error) {
	c, err := parseCommon(fields)
	if err != nil {
		return Record{}, err
	}
	player := toString(fields["player"])
	if player == "" {
		return Record{}, ErrMissingPlayer
	}
	stat := strings.ToLower(toString(fields["stat_type"]))
	if stat == "" {
		return Record{}, ErrMissingKind
	}
	ev := &model.PlayerEvent{
		MatchID:  c.matchID,
		TS:       c.ts,
		Minute:   c.minute,
		Player:   player,
		Side:     c.side,
		Team:     c.team,
		StatType: stat,
		Value:    toFloat(fields["value"]),
		Payload:  c.payload,
		Identity: c.identity,
	}

	var contribs []model.Contribution
	if c.side != model.SideNone && stat == statXG && ev.Value > 0 {
		contribs = append(contribs, model.Contribution{Counter: model.CounterXG, Side: c.side, Amount: ev.Value})
	}

	return Record{
		Kind:   PlayerKind,
		Player: ev,
		Delta:  model.Delta{Minute: c.minute, Contributions: contribs, Identity: c.identity, ObservedAt: c.ts},
	}, nil
}
