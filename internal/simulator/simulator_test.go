package simulator_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchpulse/internal/adapters/mq/broker"
	"github.com/okian/matchpulse/internal/domain/normalize"
	"github.com/okian/matchpulse/internal/simulator"
	"github.com/okian/matchpulse/pkg/logger"
)

func init() {
	_ = logger.Init()
}

var fixed = time.Date(2025, 5, 1, 19, 0, 0, 0, time.UTC)

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		gen := simulator.NewGenerator(3, 42, func() time.Time { return fixed })

		Convey("Kickoffs name distinct teams and normalize cleanly", func() {
			kickoffs, err := gen.Kickoffs()
			So(err, ShouldBeNil)
			So(kickoffs, ShouldHaveLength, 3)
			for _, k := range kickoffs {
				So(k.Kind, ShouldEqual, normalize.MatchKind)
				var ev simulator.MatchEvent
				So(json.Unmarshal(k.Body, &ev), ShouldBeNil)
				So(ev.EventType, ShouldEqual, "kickoff")
				So(ev.HomeTeam, ShouldNotEqual, ev.AwayTeam)
				So(ev.TeamSide, ShouldBeNil)

				_, err := normalize.Normalize(k.Kind, k.Body)
				So(err, ShouldBeNil)
			}
		})

		Convey("Random records follow the stream mix and value ranges", func() {
			var matchN, playerN int
			for range 2000 {
				e, err := gen.Next()
				So(err, ShouldBeNil)
				_, err = normalize.Normalize(e.Kind, e.Body)
				So(err, ShouldBeNil)

				switch e.Kind {
				case normalize.MatchKind:
					matchN++
					var ev simulator.MatchEvent
					So(json.Unmarshal(e.Body, &ev), ShouldBeNil)
					So(ev.EventType, ShouldBeIn, "shot", "corner", "foul", "goal")
					if xg, ok := ev.Payload["xg"]; ok {
						So(xg.(float64), ShouldBeBetweenOrEqual, 0.02, 0.35)
					}
				case normalize.PlayerKind:
					playerN++
					var ev simulator.PlayerEvent
					So(json.Unmarshal(e.Body, &ev), ShouldBeNil)
					So(ev.StatType, ShouldBeIn, "xg", "pass", "tackle")
					So(ev.Value, ShouldBeBetweenOrEqual, 0.01, 0.25)
				}
			}
			share := float64(matchN) / float64(matchN+playerN)
			So(share, ShouldAlmostEqual, 0.55, 0.05)
		})

		Convey("Tick advances every match clock", func() {
			gen.Tick()
			gen.Tick()
			e, err := gen.Next()
			So(err, ShouldBeNil)
			var ev struct {
				Minute int `json:"minute"`
			}
			So(json.Unmarshal(e.Body, &ev), ShouldBeNil)
			So(ev.Minute, ShouldEqual, 2)
		})

		Convey("The same seed yields the same pairings", func() {
			a, _ := simulator.NewGenerator(3, 7, func() time.Time { return fixed }).Kickoffs()
			b, _ := simulator.NewGenerator(3, 7, func() time.Time { return fixed }).Kickoffs()
			for i := range a {
				var ea, eb simulator.MatchEvent
				_ = json.Unmarshal(a[i].Body, &ea)
				_ = json.Unmarshal(b[i].Body, &eb)
				So(ea.HomeTeam, ShouldEqual, eb.HomeTeam)
				So(ea.AwayTeam, ShouldEqual, eb.AwayTeam)
			}
		})
	})
}

func TestHistoricalDocs(t *testing.T) {
	Convey("Given synthetic historical summaries", t, func() {
		docs := simulator.HistoricalDocs(20, 9, fixed)

		So(docs, ShouldHaveLength, 20)
		for _, d := range docs {
			So(d.Kind, ShouldEqual, simulator.HistoricalDocKind)
			So(d.Text, ShouldStartWith, "Historical match: ")
			So(d.Text, ShouldContainSubstring, "Pattern: goal_diff=")
			So(d.Meta["home"], ShouldNotEqual, d.Meta["away"])
			So(d.Meta["ts"], ShouldEqual, fixed.Format(time.RFC3339Nano))
			So(d.Vector, ShouldBeNil)
		}
	})
}

type recordingSink struct {
	mu   sync.Mutex
	sent []simulator.Emitted
	fail bool
}

func (s *recordingSink) Send(_ context.Context, kind normalize.Kind, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.sent = append(s.sent, simulator.Emitted{Kind: kind, Body: body})
	return nil
}

func TestRun(t *testing.T) {
	Convey("Given a bounded run", t, func() {
		ctx := context.Background()
		out := filepath.Join(t.TempDir(), "run", "events.jsonl")
		cfg := &simulator.Config{
			Matches:     2,
			EPS:         2000,
			MinuteEvery: time.Hour,
			MaxEvents:   12,
			OutputFile:  out,
		}
		gen := simulator.NewGenerator(cfg.Matches, 1, nil)

		Convey("It sends kickoffs then stops at the event budget", func() {
			sink := &recordingSink{}
			stats, err := simulator.Run(ctx, cfg, gen, sink)
			So(err, ShouldBeNil)
			So(stats.EventsGenerated, ShouldEqual, 12)
			So(stats.MatchEventsSent+stats.PlayerEventsSent, ShouldEqual, 12)
			So(sink.sent, ShouldHaveLength, 12)
			So(string(sink.sent[0].Body), ShouldContainSubstring, `"event_type":"kickoff"`)

			raw, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			So(strings.Count(string(raw), "\n"), ShouldEqual, 12)
		})

		Convey("Sink failures are counted", func() {
			stats, err := simulator.Run(ctx, cfg, gen, &recordingSink{fail: true})
			So(err, ShouldBeNil)
			So(stats.EventsFailed, ShouldEqual, 12)
		})

		Convey("Cancellation ends an unbounded run", func() {
			cfg.MaxEvents = 0
			cfg.EPS = 100
			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			stats, err := simulator.Run(cctx, cfg, gen, &recordingSink{})
			So(err, ShouldBeNil)
			So(stats.EventsGenerated, ShouldBeGreaterThanOrEqualTo, 2)
		})
	})
}

func TestSinks(t *testing.T) {
	Convey("Given a broker sink", t, func() {
		mem := broker.NewMemory()
		defer mem.Close()
		sink := simulator.NewBrokerSink(mem, "match_events", "player_events")
		ctx := context.Background()

		So(sink.Send(ctx, normalize.MatchKind, []byte(`{"a":1}`)), ShouldBeNil)
		So(sink.Send(ctx, normalize.PlayerKind, []byte(`{"b":2}`)), ShouldBeNil)
		So(mem.Len("match_events"), ShouldEqual, 1)
		So(mem.Len("player_events"), ShouldEqual, 1)
		So(errors.Is(sink.Send(ctx, "other", nil), normalize.ErrValidation), ShouldBeTrue)
	})

	Convey("Given an HTTP sink", t, func() {
		var mu sync.Mutex
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			paths = append(paths, r.Method+" "+r.URL.Path)
			mu.Unlock()
			switch r.URL.Path {
			case "/health":
				w.WriteHeader(http.StatusOK)
			case "/events/match":
				w.WriteHeader(http.StatusAccepted)
			default:
				w.WriteHeader(http.StatusBadRequest)
			}
		}))
		defer srv.Close()

		sink := simulator.NewHTTPSink(srv.URL+"/", time.Second)
		ctx := context.Background()

		So(sink.Check(ctx), ShouldBeNil)
		So(sink.Send(ctx, normalize.MatchKind, []byte(`{}`)), ShouldBeNil)
		So(sink.Send(ctx, normalize.PlayerKind, []byte(`{}`)), ShouldNotBeNil)

		mu.Lock()
		defer mu.Unlock()
		So(paths, ShouldResemble, []string{"GET /health", "POST /events/match", "POST /events/player"})
	})
}
