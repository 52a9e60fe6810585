package model_test

import (
	"testing"

	"github.com/okian/matchpulse/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func shot(side model.Side, minute int, xg float64) model.Delta {
	return model.Delta{
		Minute: minute,
		Contributions: []model.Contribution{
			{Counter: model.CounterShots, Side: side, Amount: 1},
			{Counter: model.CounterXG, Side: side, Amount: xg},
		},
	}
}

func TestMerge(t *testing.T) {
	convey.Convey("Given an empty match state", t, func() {
		s := model.NewLiveMatchState("m1")

		convey.Convey("Then it starts at zero with default teams", func() {
			convey.So(s.NEvents, convey.ShouldEqual, 0)
			convey.So(s.HomeTeam, convey.ShouldEqual, "HOME")
			convey.So(s.AwayTeam, convey.ShouldEqual, "AWAY")
			convey.So(s.Competition, convey.ShouldEqual, "UEFA")
		})

		convey.Convey("When events arrive with minutes out of order", func() {
			for _, m := range []int{10, 4, 30, 12, 29} {
				s = model.Merge(s, shot(model.SideHome, m, 0.1))
			}

			convey.Convey("Then minute is the running maximum and counts add up", func() {
				convey.So(s.Minute, convey.ShouldEqual, 30)
				convey.So(s.NEvents, convey.ShouldEqual, 5)
				convey.So(s.Home.Shots, convey.ShouldEqual, 5)
				convey.So(s.Home.XG, convey.ShouldAlmostEqual, 0.5, 1e-9)
				convey.So(s.Away.Shots, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a contribution has no side", func() {
			next := model.Merge(s, model.Delta{
				Contributions: []model.Contribution{{Counter: model.CounterFouls, Side: model.SideNone, Amount: 1}},
			})

			convey.Convey("Then only the event counter moves", func() {
				convey.So(next.NEvents, convey.ShouldEqual, 1)
				convey.So(next.Home.Fouls, convey.ShouldEqual, 0)
				convey.So(next.Away.Fouls, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When team identity arrives on the first and later events", func() {
			s = model.Merge(s, model.Delta{Identity: model.MatchIdentity{HomeTeam: "Inter", AwayTeam: "Milan"}})
			s = model.Merge(s, model.Delta{Identity: model.MatchIdentity{HomeTeam: "PSG", AwayTeam: "Bayern"}})

			convey.Convey("Then the first identity sticks", func() {
				convey.So(s.HomeTeam, convey.ShouldEqual, "Inter")
				convey.So(s.AwayTeam, convey.ShouldEqual, "Milan")
				convey.So(s.Competition, convey.ShouldEqual, "UEFA")
			})
		})

		convey.Convey("Merge does not mutate its input", func() {
			before := s
			_ = model.Merge(s, shot(model.SideAway, 5, 0.2))
			convey.So(s, convey.ShouldResemble, before)
		})
	})
}

func TestParseSide(t *testing.T) {
	convey.Convey("Sides are parsed case-insensitively", t, func() {
		convey.So(model.ParseSide("home"), convey.ShouldEqual, model.SideHome)
		convey.So(model.ParseSide(" AWAY "), convey.ShouldEqual, model.SideAway)
		convey.So(model.ParseSide(""), convey.ShouldEqual, model.SideNone)
		convey.So(model.ParseSide("neutral"), convey.ShouldEqual, model.SideNone)
	})
}

func TestProbabilities(t *testing.T) {
	convey.Convey("Probabilities validate as a distribution", t, func() {
		convey.So(model.Probabilities{HomeWin: 0.5, Draw: 0.3, AwayWin: 0.2}.Valid(model.ProbabilityTolerance), convey.ShouldBeTrue)
		convey.So(model.Probabilities{HomeWin: 0.5, Draw: 0.3, AwayWin: 0.3}.Valid(model.ProbabilityTolerance), convey.ShouldBeFalse)
		convey.So(model.Probabilities{HomeWin: 1.2, Draw: -0.2, AwayWin: 0}.Valid(model.ProbabilityTolerance), convey.ShouldBeFalse)
	})
}
