package cadence_test

import (
	"testing"

	"github.com/okian/matchpulse/internal/domain/cadence"
	"github.com/okian/matchpulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGate(t *testing.T) {
	Convey("Given a gate with every_n = 25", t, func() {
		gate := cadence.New(25)

		Convey("It triggers exactly on positive multiples", func() {
			var fired []int64
			s := model.NewLiveMatchState("m")
			for i := 0; i < 100; i++ {
				s = model.Merge(s, model.Delta{Minute: i % 90})
				if gate.ShouldTrigger(s) {
					fired = append(fired, s.NEvents)
				}
			}
			So(fired, ShouldResemble, []int64{25, 50, 75, 100})
		})

		Convey("It never triggers on an empty state", func() {
			So(gate.ShouldTrigger(model.NewLiveMatchState("m")), ShouldBeFalse)
		})
	})

	Convey("every_n = 1 triggers on every event", t, func() {
		gate := cadence.New(1)
		So(gate.ShouldTrigger(model.LiveMatchState{NEvents: 1}), ShouldBeTrue)
		So(gate.ShouldTrigger(model.LiveMatchState{NEvents: 7}), ShouldBeTrue)
	})

	Convey("A non-positive cadence disables the gate", t, func() {
		So(cadence.New(0).ShouldTrigger(model.LiveMatchState{NEvents: 25}), ShouldBeFalse)
		So(cadence.New(-5).ShouldTrigger(model.LiveMatchState{NEvents: 25}), ShouldBeFalse)
	})
}
