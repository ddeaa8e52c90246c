package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When applying them to a manager", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pfx"),
				WithLatencyBuckets([]float64{1, 10, 100}),
				WithScoreBuckets([]float64{50, 90}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithRegistry(registry),
			)

			Convey("Then the manager should carry the configured values", func() {
				So(m.namespace, ShouldEqual, "test_namespace")
				So(m.subsystem, ShouldEqual, "test_subsystem")
				So(m.metricPrefix, ShouldEqual, "pfx")
				So(m.latencyBuckets, ShouldResemble, []float64{1, 10, 100})
				So(m.scoreBuckets, ShouldResemble, []float64{50, 90})
				So(m.constLabels["env"], ShouldEqual, "test")
			})

			Convey("And metric names should include the prefix and labels", func() {
				m.cacheClears.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() != "test_namespace_test_subsystem_pfx_cache_clears_total" {
						continue
					}
					found = true
					labels := f.GetMetric()[0].GetLabel()
					So(labels, ShouldHaveLength, 1)
					So(labels[0].GetName(), ShouldEqual, "env")
					So(labels[0].GetValue(), ShouldEqual, "test")
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When passing empty values", func() {
			m := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithScoreBuckets(nil),
				WithRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(m.namespace, ShouldEqual, "promptmatch")
				So(m.subsystem, ShouldEqual, "scoring")
				So(m.latencyBuckets, ShouldResemble, defaultLatencyBuckets)
				So(m.scoreBuckets, ShouldResemble, defaultScoreBuckets)
				So(m.latencyBuckets[0], ShouldEqual, 5)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording score requests", func() {
			before := ScoreRequestCount("lexical-fallback", "easy")
			RecordScoreRequest("lexical-fallback", "easy")
			RecordScoreRequest("lexical-fallback", "easy")

			Convey("Then the counter should advance", func() {
				So(ScoreRequestCount("lexical-fallback", "easy")-before, ShouldEqual, 2)
			})
		})

		Convey("When recording cache activity", func() {
			hits := CacheHitCount("img")
			misses := CacheMissCount("txt")
			RecordCacheHit("img")
			RecordCacheMiss("txt")
			UpdateCacheSize(3)

			Convey("Then hits and misses should be tracked per kind", func() {
				So(CacheHitCount("img")-hits, ShouldEqual, 1)
				So(CacheMissCount("txt")-misses, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.cacheSize), ShouldEqual, 3)
			})
		})

		Convey("When recording the remaining metric families", func() {
			So(func() {
				RecordScoreValue("expert", 80)
				RecordScoringLatency(12.5)
				RecordValidationError("prompt")
				RecordOrchestratorStep("image-embedding", "failed")
				RecordProviderCall("image", "ok")
				RecordProviderRetry("text")
				RecordProviderLatency("text", 42)
				RecordCacheClear()
				RecordHTTPRequest("/score", "POST", "200")
				RecordHTTPRequestDuration("/score", "POST", "200", 3.2)
				UpdateQueueSize(1)
				UpdateQueueCapacity(10)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				UpdateWorkerCount(2)
				UpdateWorkerActiveCount(1)
				UpdateWorkerIdleCount(1)
				RecordWorkerProcessingLatency(7)
				RecordWorkerError()
				RecordErrorByComponent("orchestrator", "transient")
				RecordErrorByEndpoint("/score", "POST", "validation_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)

			Convey("Then the custom registry should expose them", func() {
				n, err := Gather()
				So(err, ShouldBeNil)
				So(n, ShouldBeGreaterThan, 10)
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}
