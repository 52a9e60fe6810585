package logger_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/okian/matchpulse/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given a logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(logger.InitWriter(&buf), ShouldBeNil)
		ctx := context.Background()

		Convey("Named loggers carry their dotted name", func() {
			logger.Named("worker").Named("3").Info(ctx, "started", logger.Int("id", 3))
			So(buf.String(), ShouldContainSubstring, "logger=worker.3")
			So(buf.String(), ShouldContainSubstring, "msg=started")
			So(buf.String(), ShouldContainSubstring, "id=3")
			So(buf.String(), ShouldContainSubstring, "source=")
		})

		Convey("Debug is suppressed at info level", func() {
			logger.Get().Debug(ctx, "hidden")
			So(buf.Len(), ShouldEqual, 0)

			So(logger.SetLevelString("debug"), ShouldBeNil)
			logger.Get().Debug(ctx, "shown")
			So(buf.String(), ShouldContainSubstring, "shown")
		})

		Convey("Error fields are rendered", func() {
			logger.Get().Error(ctx, "boom", logger.Error(errors.New("disk full")))
			So(buf.String(), ShouldContainSubstring, "disk full")
		})

		Convey("Unknown levels are rejected", func() {
			So(logger.SetLevelString("chatty"), ShouldNotBeNil)
			So(logger.SetLevelString(" WARNING "), ShouldBeNil)
		})
	})
}
