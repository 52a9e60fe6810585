package normalize_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/matchpulse/internal/domain/model"
	"github.com/okian/matchpulse/internal/domain/normalize"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizeMatchEvents(t *testing.T) {
	Convey("Given match event records", t, func() {
		Convey("A home shot with xg contributes a shot and xg", func() {
			rec, err := normalize.Normalize(normalize.MatchKind, []byte(`{
				"match_id": "m1", "ts": "2025-05-01T19:00:00.123456+00:00", "minute": 12,
				"event_type": "shot", "team_side": "home", "payload": {"xg": 0.1},
				"home_team": "Inter", "away_team": "Milan"
			}`))
			So(err, ShouldBeNil)
			So(rec.Kind, ShouldEqual, normalize.MatchKind)
			So(rec.MatchID(), ShouldEqual, "m1")
			So(rec.Match.TS.Equal(time.Date(2025, 5, 1, 19, 0, 0, 123456000, time.UTC)), ShouldBeTrue)
			So(rec.Delta.Minute, ShouldEqual, 12)
			So(rec.Delta.Identity.HomeTeam, ShouldEqual, "Inter")
			So(rec.Delta.Contributions, ShouldResemble, []model.Contribution{
				{Counter: model.CounterShots, Side: model.SideHome, Amount: 1},
				{Counter: model.CounterXG, Side: model.SideHome, Amount: 0.1},
			})
		})

		Convey("A foul without a side contributes nothing", func() {
			rec, err := normalize.Normalize(normalize.MatchKind, []byte(
				`{"match_id": "m1", "ts": "2025-05-01T19:00:00Z", "minute": 40, "event_type": "foul"}`))
			So(err, ShouldBeNil)
			So(rec.Delta.Contributions, ShouldBeEmpty)
			So(rec.Delta.Minute, ShouldEqual, 40)
		})

		Convey("Unknown kinds such as kickoff only count", func() {
			rec, err := normalize.Normalize(normalize.MatchKind, []byte(
				`{"match_id": "m1", "ts": "2025-05-01T19:00:00", "event_type": "kickoff", "team_side": "home"}`))
			So(err, ShouldBeNil)
			So(rec.Delta.Contributions, ShouldBeEmpty)
			So(rec.Match.TS.Location(), ShouldEqual, time.UTC)
		})

		Convey("Mistyped numeric fields fall back to zero", func() {
			rec, err := normalize.Normalize(normalize.MatchKind, []byte(`{
				"match_id": "m1", "ts": "2025-05-01T19:00:00Z", "minute": "late",
				"event_type": "GOAL", "team_side": "away", "payload": {"xg": {"nested": true}}
			}`))
			So(err, ShouldBeNil)
			So(rec.Delta.Minute, ShouldEqual, 0)
			So(rec.Match.EventType, ShouldEqual, "goal")
			So(rec.Delta.Contributions, ShouldResemble, []model.Contribution{
				{Counter: model.CounterGoals, Side: model.SideAway, Amount: 1},
			})
		})

		Convey("Numeric strings are coerced and negative minutes are clamped", func() {
			rec, err := normalize.Normalize(normalize.MatchKind, []byte(`{
				"match_id": "m1", "ts": "2025-05-01T19:00:00Z", "minute": "-3",
				"event_type": "shot", "team_side": "away", "payload": {"xg": "0.25"}
			}`))
			So(err, ShouldBeNil)
			So(rec.Delta.Minute, ShouldEqual, 0)
			So(rec.Delta.Contributions[1].Amount, ShouldEqual, 0.25)
		})

		Convey("Missing required fields are validation failures", func() {
			cases := map[string]error{
				`{"ts": "2025-05-01T19:00:00Z", "event_type": "shot"}`:             normalize.ErrMissingMatchID,
				`{"match_id": "m1", "event_type": "shot"}`:                         normalize.ErrMissingTimestamp,
				`{"match_id": "m1", "ts": "yesterday", "event_type": "shot"}`:      normalize.ErrInvalidTimestamp,
				`{"match_id": "m1", "ts": "2025-05-01T19:00:00Z"}`:                 normalize.ErrMissingKind,
				`[1, 2, 3]`:                                                         normalize.ErrMalformedRecord,
				`not json`:                                                          normalize.ErrMalformedRecord,
			}
			for raw, want := range cases {
				_, err := normalize.Normalize(normalize.MatchKind, []byte(raw))
				So(errors.Is(err, want), ShouldBeTrue)
				So(errors.Is(err, normalize.ErrValidation), ShouldBeTrue)
			}
		})
	})
}

func TestNormalizePlayerEvents(t *testing.T) {
	Convey("Given player event records", t, func() {
		Convey("An xg stat adds to the side's xg", func() {
			rec, err := normalize.Normalize(normalize.PlayerKind, []byte(`{
				"match_id": "m2", "ts": "2025-05-01T19:00:00Z", "minute": 33,
				"player": "Striker A", "team_side": "away", "stat_type": "xg", "value": 0.2
			}`))
			So(err, ShouldBeNil)
			So(rec.Player.Player, ShouldEqual, "Striker A")
			So(rec.Delta.Contributions, ShouldResemble, []model.Contribution{
				{Counter: model.CounterXG, Side: model.SideAway, Amount: 0.2},
			})
		})

		Convey("Other stats only count", func() {
			rec, err := normalize.Normalize(normalize.PlayerKind, []byte(`{
				"match_id": "m2", "ts": "2025-05-01T19:00:00Z",
				"player": "Mid C", "team_side": "home", "stat_type": "pass", "value": "oops"
			}`))
			So(err, ShouldBeNil)
			So(rec.Player.Value, ShouldEqual, 0)
			So(rec.Delta.Contributions, ShouldBeEmpty)
		})

		Convey("Player and stat type are required", func() {
			_, err := normalize.Normalize(normalize.PlayerKind, []byte(
				`{"match_id": "m2", "ts": "2025-05-01T19:00:00Z", "stat_type": "xg"}`))
			So(errors.Is(err, normalize.ErrMissingPlayer), ShouldBeTrue)

			_, err = normalize.Normalize(normalize.PlayerKind, []byte(
				`{"match_id": "m2", "ts": "2025-05-01T19:00:00Z", "player": "GK E"}`))
			So(errors.Is(err, normalize.ErrMissingKind), ShouldBeTrue)
		})
	})

	Convey("An undeclared kind is rejected", t, func() {
		_, err := normalize.Normalize("referee", []byte(`{}`))
		So(errors.Is(err, normalize.ErrUnknownKind), ShouldBeTrue)
	})
}
