package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("The default manager registers under redstone_oracle", func() {
			m := NewManager(WithPrometheusRegistry(registry))
			m.pricesWritten.Add(3)
			So(testutil.ToFloat64(m.pricesWritten), ShouldEqual, 3)

			families, err := registry.Gather()
			So(err, ShouldBeNil)
			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["redstone_oracle_prices_written_total"], ShouldBeTrue)
		})

		Convey("Namespace and subsystem can be overridden", func() {
			m := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithLatencyBuckets(5, 1, 2),
			)
			m.chunksReceived.Inc()

			families, err := registry.Gather()
			So(err, ShouldBeNil)
			found := false
			for _, f := range families {
				if f.GetName() == "test_unit_chunks_received_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("Registering twice on one registry panics", func() {
			NewManager(WithPrometheusRegistry(registry))
			So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Labelled counters are split by label", func() {
			before := testutil.ToFloat64(globalManager.payloadErrors.WithLabelValues("write", "511"))
			RecordPayloadError("write", 511)
			RecordPayloadError("write", 511)
			RecordPayloadError("get", 511)
			So(testutil.ToFloat64(globalManager.payloadErrors.WithLabelValues("write", "511")), ShouldEqual, before+2)
		})

		Convey("Gauges keep the last value", func() {
			UpdateFeedsStored(4)
			UpdateFeedsStored(2)
			So(testutil.ToFloat64(globalManager.feedsStored), ShouldEqual, 2)

			UpdateQueueUtilization(0.25)
			So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.25)
		})

		Convey("Recorders never panic", func() {
			So(func() {
				RecordPayloadProcessed("get")
				RecordProcessingLatency(1.5)
				RecordPricesWritten(2)
				RecordGuardRejection(1102)
				RecordChunkReceived()
				RecordChunksCompleted()
				RecordChunkResultHit()
				RecordChunkResultMiss()
				UpdateChunkBuffersOpen(1)
				RecordSubmissionAccepted()
				RecordSubmissionDuplicate()
				RecordStoreUpdateLatency(0.2)
				RecordStoreQueryLatency(0.1)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(3)
				UpdateWorkerCount(2)
				UpdateWorkerActiveCount(1)
				UpdateWorkerIdleCount(1)
				RecordWorkerProcessingLatency(4)
				RecordWorkerError()
				RecordHTTPRequest("/v1/timestamp", "GET", "200")
				RecordHTTPRequestDuration("/v1/timestamp", "GET", "200", 0.3)
				RecordHTTPRateLimited()
				RecordErrorByComponent("store", "not_found")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
			}, ShouldNotPanic)
		})

		Convey("The service registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
