package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.chartsRendered.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_charts_rendered_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering the same names twice", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then promauto panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording window outcomes", func() {
			before := testutil.ToFloat64(globalManager.windowsEvaluated.WithLabelValues("rendered"))
			RecordWindowOutcome("rendered")
			RecordWindowOutcome("rendered")

			Convey("Then the labelled counter advances", func() {
				after := testutil.ToFloat64(globalManager.windowsEvaluated.WithLabelValues("rendered"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When updating gauges", func() {
			UpdateQueueSize(7)
			UpdateInfluencers(3)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.influencers), ShouldEqual, 3)
			})
		})

		Convey("When recording every other metric", func() {
			So(func() {
				RecordFitLatency(0.2)
				RecordMaxDeviation(12)
				RecordGenuineness(true)
				RecordGenuineness(false)
				RecordChartRendered()
				RecordRun("ok", 1.5)
				RecordStoreQueryLatency("list_events", 3)
				RecordEventsImported(10)
				RecordEventDuplicate()
				RecordEventMalformed()
				UpdateQueueCapacity(100)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(4)
				UpdateWorkerActiveCount(2)
				RecordWorkerProcessingLatency(5)
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 1)
				RecordErrorByComponent("store", "query")
			}, ShouldNotPanic)

			Convey("Then the registry exposes them", func() {
				n, err := testutil.GatherAndCount(GetRegistry())
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThan, 10)
			})
		})
	})
}

func TestRegistryNaming(t *testing.T) {
	Convey("Given the default namespace", t, func() {
		families, err := GetRegistry().Gather()
		So(err, ShouldBeNil)

		Convey("Then every family is prefixed gisc_analysis_", func() {
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "gisc_analysis_"), ShouldBeTrue)
			}
		})
	})
}
