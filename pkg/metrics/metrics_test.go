package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.predictionsEmitted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_predictions_emitted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options get zero values", func() {
			manager := NewManager(WithNamespace(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "matchpulse")
				So(manager.histogramBuckets, ShouldNotBeEmpty)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Pipeline counters move", func() {
			before := testutil.ToFloat64(globalManager.eventsProcessed.WithLabelValues("match"))
			RecordEventProcessed("match")
			So(testutil.ToFloat64(globalManager.eventsProcessed.WithLabelValues("match")), ShouldEqual, before+1)

			dropped := testutil.ToFloat64(globalManager.eventsDropped.WithLabelValues("player", "validation"))
			RecordEventDropped("player", "validation")
			So(testutil.ToFloat64(globalManager.eventsDropped.WithLabelValues("player", "validation")), ShouldEqual, dropped+1)

			lost := testutil.ToFloat64(globalManager.stateLostUpdates)
			RecordStateLostUpdate()
			So(testutil.ToFloat64(globalManager.stateLostUpdates), ShouldEqual, lost+1)
		})

		Convey("Gauges are set", func() {
			UpdateBreakerOpen(true)
			So(testutil.ToFloat64(globalManager.breakerOpen), ShouldEqual, 1)
			UpdateBreakerOpen(false)
			So(testutil.ToFloat64(globalManager.breakerOpen), ShouldEqual, 0)

			UpdateIndexDocuments(200)
			So(testutil.ToFloat64(globalManager.indexDocuments), ShouldEqual, 200)
		})

		Convey("Histograms accept observations", func() {
			So(func() {
				RecordStageLatency("infer", 1.5)
				RecordHTTPRequestDuration("/health", "GET", "200", 0.3)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("The custom registry exposes matchpulse metrics", func() {
			RecordPredictionEmitted()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make([]string, 0, len(families))
			for _, f := range families {
				names = append(names, f.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "matchpulse_pipeline_predictions_emitted_total")
		})
	})
}
