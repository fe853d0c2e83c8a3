package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then every collector should be registered on it", func() {
				So(manager, ShouldNotBeNil)
				manager.notesCreated.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.notesCreated.Inc()

			Convey("Then metric names should carry the namespace and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				found := false
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_created_total" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When registering two managers on the same registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording note mutations", func() {
			before := testutil.ToFloat64(globalManager.notesDeleted)
			RecordNoteCreated()
			RecordNoteUpdated()
			RecordNotesDeleted(3)

			Convey("Then the counters should move", func() {
				So(testutil.ToFloat64(globalManager.notesDeleted)-before, ShouldEqual, 3)
			})
		})

		Convey("When updating collection sizes", func() {
			UpdateCollectionSizes(4, 9)

			Convey("Then the gauges should hold the latest values", func() {
				So(testutil.ToFloat64(globalManager.notesTotal), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.itemsTotal), ShouldEqual, 9)
			})
		})

		Convey("When recording HTTP and store observations", func() {
			So(func() {
				RecordHTTPRequest("notes", "GET", "200")
				RecordHTTPRequestDuration("notes", "GET", "200", 1.5)
				RecordStoreLatency(OpCreate, 0.2)
				RecordErrorByEndpoint("note", "GET", "not_found")
				RecordErrorByComponent("store", "not_found")
				RecordErrorByType("not_found", "medium")
			}, ShouldNotPanic)

			Convey("Then labelled series should exist", func() {
				So(testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("notes", "GET", "200")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording queue, worker and feed metrics", func() {
			So(func() {
				UpdateQueueCapacity(10)
				UpdateQueueSize(5)
				UpdateQueueUtilization(0.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(2)
				RecordWorkerProcessingLatency(0.3)
				RecordWorkerError()
				UpdateFeedClients(1)
				RecordFeedBroadcast()
				RecordFeedDropped()
				UpdateIdempotencyKeys(7)
				RecordIdempotentReplay()
				RecordValidationFailure()
				RecordLookupMiss()
			}, ShouldNotPanic)

			Convey("Then gauges should reflect the last update", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 2)
				So(testutil.ToFloat64(globalManager.idempotencyLen), ShouldEqual, 7)
			})
		})

		Convey("When recording system metrics", func() {
			So(func() {
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry should be exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
