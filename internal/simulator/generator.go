package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchpulse/internal/domain/normalize"
)

// Teams and players drawn by the generator.
var (
	Teams   = []string{"Real Madrid", "Barcelona", "Man City", "Arsenal", "Bayern", "PSG", "Inter", "Milan", "Atletico", "Dortmund"}
	Players = []string{"Striker A", "Winger B", "Mid C", "Def D", "GK E", "Striker F", "Winger G", "Mid H"}
)

const competition = "UEFA"

// Share of traffic that goes to the match events stream.
const matchEventShare = 0.55

// Match event mix.
var matchEventWeights = []weighted{
	{"shot", 0.55},
	{"corner", 0.18},
	{"foul", 0.20},
	{"goal", 0.07},
}

var statTypes = []string{"xg", "pass", "tackle"}

// Value ranges.
const (
	xgMin    = 0.02
	xgMax    = 0.35
	statMin  = 0.01
	statMax  = 0.25
	decimals = 3
)

type weighted struct {
	name   string
	weight float64
}

// Emitted is one serialized record and the stream it belongs to.
type Emitted struct {
	Kind normalize.Kind
	Body []byte
}

type match struct {
	id     string
	home   string
	away   string
	minute int
}

// Generator produces records for a fixed set of simulated matches.
// Next and Tick are safe for concurrent use.
type Generator struct {
	mu      sync.Mutex
	rng     *rand.Rand
	matches []*match
	now     func() time.Time
}

// NewGenerator creates n matches with random pairings. A zero seed picks one
// from the clock.
func NewGenerator(n int, seed uint64, now func() time.Time) *Generator {
	if n <= 0 {
		n = DefaultMatches
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if now == nil {
		now = time.Now
	}
	g := &Generator{
		rng: rand.New(rand.NewPCG(seed, seed>>1|1)),
		now: now,
	}
	for range n {
		home, away := g.pairing()
		g.matches = append(g.matches, &match{id: uuid.NewString(), home: home, away: away})
	}
	return g
}

// MatchIDs returns the simulated match ids.
func (g *Generator) MatchIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, len(g.matches))
	for i, m := range g.matches {
		ids[i] = m.id
	}
	return ids
}

// Kickoffs returns one kickoff record per match.
func (g *Generator) Kickoffs() ([]Emitted, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Emitted, 0, len(g.matches))
	for _, m := range g.matches {
		e, err := encode(normalize.MatchKind, MatchEvent{
			MatchID:     m.id,
			TS:          g.timestamp(),
			Minute:      0,
			EventType:   "kickoff",
			Payload:     map[string]any{},
			HomeTeam:    m.home,
			AwayTeam:    m.away,
			Competition: competition,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Tick advances every match clock by one minute.
func (g *Generator) Tick() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range g.matches {
		m.minute++
	}
}

// Next returns the next random record of a random match.
func (g *Generator) Next() (Emitted, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	m := g.matches[g.rng.IntN(len(g.matches))]
	side, team := g.side(m)

	if g.rng.Float64() < matchEventShare {
		et := g.pick(matchEventWeights)
		payload := map[string]any{}
		if et == "shot" || et == "goal" {
			payload["xg"] = round(g.uniform(xgMin, xgMax), decimals)
		}
		player := Players[g.rng.IntN(len(Players))]
		return encode(normalize.MatchKind, MatchEvent{
			MatchID:     m.id,
			TS:          g.timestamp(),
			Minute:      m.minute,
			EventType:   et,
			TeamSide:    &side,
			Team:        &team,
			Player:      &player,
			Payload:     payload,
			HomeTeam:    m.home,
			AwayTeam:    m.away,
			Competition: competition,
		})
	}

	return encode(normalize.PlayerKind, PlayerEvent{
		MatchID:     m.id,
		TS:          g.timestamp(),
		Minute:      m.minute,
		Player:      Players[g.rng.IntN(len(Players))],
		TeamSide:    side,
		Team:        team,
		StatType:    statTypes[g.rng.IntN(len(statTypes))],
		Value:       round(g.uniform(statMin, statMax), decimals),
		Payload:     map[string]any{},
		HomeTeam:    m.home,
		AwayTeam:    m.away,
		Competition: competition,
	})
}

func (g *Generator) pairing() (string, string) {
	home := g.rng.IntN(len(Teams))
	away := g.rng.IntN(len(Teams) - 1)
	if away >= home {
		away++
	}
	return Teams[home], Teams[away]
}

func (g *Generator) side(m *match) (string, string) {
	if g.rng.IntN(2) == 0 {
		return "home", m.home
	}
	return "away", m.away
}

func (g *Generator) pick(options []weighted) string {
	var total float64
	for _, o := range options {
		total += o.weight
	}
	r := g.rng.Float64() * total
	for _, o := range options {
		if r < o.weight {
			return o.name
		}
		r -= o.weight
	}
	return options[len(options)-1].name
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func (g *Generator) timestamp() string {
	return g.now().UTC().Format(time.RFC3339Nano)
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func encode(kind normalize.Kind, v any) (Emitted, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Emitted{}, fmt.Errorf("encode %s event: %w", kind, err)
	}
	return Emitted{Kind: kind, Body: body}, nil
}
