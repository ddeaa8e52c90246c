// Package metrics provides Prometheus metrics for the promptmatch scoring service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Latencies are recorded in milliseconds: 5ms doubling up to ~10s.
var defaultLatencyBuckets = prometheus.ExponentialBuckets(5, 2, 12) //nolint:gochecknoglobals // read-only defaults

// Final scores live in [0,100].
var defaultScoreBuckets = prometheus.LinearBuckets(0, 10, 11) //nolint:gochecknoglobals // read-only defaults

// Manager manages all Prometheus metrics for the scoring service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	scoreBuckets   []float64
	constLabels    map[string]string
	metricPrefix   string
	registry       prometheus.Registerer

	// Scoring metrics
	scoreRequests     *prometheus.CounterVec
	scoreValues       *prometheus.HistogramVec
	scoringLatency    prometheus.Histogram
	validationErrors  *prometheus.CounterVec
	orchestratorSteps *prometheus.CounterVec

	// Provider metrics
	providerCalls   *prometheus.CounterVec
	providerRetries *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec

	// Cache metrics
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   prometheus.Gauge
	cacheClears prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Warm-up queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Warm-up worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "promptmatch",
		subsystem:      "scoring",
		latencyBuckets: defaultLatencyBuckets,
		scoreBuckets:   defaultScoreBuckets,
		constLabels:    make(map[string]string),
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.scoreRequests = m.counterVec("requests_total", "Total number of score requests by scoring mode and tier", "mode", "tier")
	m.scoreValues = m.histogramVec("score_value", "Distribution of final scores by tier", m.scoreBuckets, "tier")
	m.scoringLatency = m.histogram("latency_milliseconds", "End-to-end scoring latency in milliseconds", m.latencyBuckets)
	m.validationErrors = m.counterVec("validation_errors_total", "Requests rejected before orchestration", "field")
	m.orchestratorSteps = m.counterVec("orchestrator_steps_total", "Fallback steps attempted by outcome", "step", "outcome")

	m.providerCalls = m.counterVec("provider_calls_total", "Embedding provider calls by kind and outcome", "kind", "outcome")
	m.providerRetries = m.counterVec("provider_retries_total", "Embedding provider retries by kind", "kind")
	m.providerLatency = m.histogramVec("provider_latency_milliseconds", "Embedding provider latency in milliseconds", m.latencyBuckets, "kind")

	m.cacheHits = m.counterVec("cache_hits_total", "Embedding cache hits by key kind", "kind")
	m.cacheMisses = m.counterVec("cache_misses_total", "Embedding cache misses by key kind", "kind")
	m.cacheSize = m.gauge("cache_entries", "Current number of cached embeddings")
	m.cacheClears = m.counter("cache_clears_total", "Total number of whole-cache clears")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets, "endpoint", "method", "status_code")

	m.queueSize = m.gauge("warmup_queue_size", "Current size of the warm-up queue")
	m.queueCapacity = m.gauge("warmup_queue_capacity", "Maximum warm-up queue capacity")
	m.queueUtilization = m.gauge("warmup_queue_utilization_ratio", "Warm-up queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("warmup_queue_enqueue_total", "Total number of warm-up jobs enqueued")
	m.queueDequeueRate = m.counter("warmup_queue_dequeue_total", "Total number of warm-up jobs dequeued")
	m.queueEnqueueErrors = m.counter("warmup_queue_enqueue_errors_total", "Total number of warm-up enqueue errors")

	m.workerCount = m.gauge("warmup_worker_count", "Configured number of warm-up workers")
	m.workerActiveCount = m.gauge("warmup_worker_active_count", "Number of active warm-up workers")
	m.workerIdleCount = m.gauge("warmup_worker_idle_count", "Number of idle warm-up workers")
	m.workerProcessingLatency = m.histogram("warmup_worker_latency_milliseconds", "Warm-up job latency in milliseconds", m.latencyBuckets)
	m.workerErrorRate = m.counter("warmup_worker_errors_total", "Total number of warm-up job failures")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// Scoring metrics.

// RecordScoreRequest counts a completed score request by the mode that produced it.
func RecordScoreRequest(mode, tier string) {
	globalManager.scoreRequests.WithLabelValues(mode, tier).Inc()
}

// RecordScoreValue observes a final score.
func RecordScoreValue(tier string, score int) {
	globalManager.scoreValues.WithLabelValues(tier).Observe(float64(score))
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordValidationError counts a request rejected for the given field.
func RecordValidationError(field string) {
	globalManager.validationErrors.WithLabelValues(field).Inc()
}

// RecordOrchestratorStep counts a fallback step outcome ("ok", "failed", "skipped").
func RecordOrchestratorStep(step, outcome string) {
	globalManager.orchestratorSteps.WithLabelValues(step, outcome).Inc()
}

// Provider metrics.

// RecordProviderCall counts an embedding provider call.
func RecordProviderCall(kind, outcome string) {
	globalManager.providerCalls.WithLabelValues(kind, outcome).Inc()
}

// RecordProviderRetry counts a retry of an embedding provider call.
func RecordProviderRetry(kind string) {
	globalManager.providerRetries.WithLabelValues(kind).Inc()
}

// RecordProviderLatency records embedding provider latency in milliseconds.
func RecordProviderLatency(kind string, latencyMs float64) {
	globalManager.providerLatency.WithLabelValues(kind).Observe(latencyMs)
}

// Cache metrics.

// RecordCacheHit counts a cache hit.
func RecordCacheHit(kind string) {
	globalManager.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss counts a cache miss.
func RecordCacheMiss(kind string) {
	globalManager.cacheMisses.WithLabelValues(kind).Inc()
}

// UpdateCacheSize sets the number of cached embeddings.
func UpdateCacheSize(size int) {
	globalManager.cacheSize.Set(float64(size))
}

// RecordCacheClear counts a whole-cache clear.
func RecordCacheClear() {
	globalManager.cacheClears.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker metrics.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// ScoreRequestCount reads the current score request counter for a mode and tier.
// Used by /stats and tests.
func ScoreRequestCount(mode, tier string) float64 {
	return testutil.ToFloat64(globalManager.scoreRequests.WithLabelValues(mode, tier))
}

// CacheHitCount reads the current cache hit counter for a key kind.
func CacheHitCount(kind string) float64 {
	return testutil.ToFloat64(globalManager.cacheHits.WithLabelValues(kind))
}

// CacheMissCount reads the current cache miss counter for a key kind.
func CacheMissCount(kind string) float64 {
	return testutil.ToFloat64(globalManager.cacheMisses.WithLabelValues(kind))
}

// Gather returns the number of metric families currently registered on the custom registry.
func Gather() (int, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNotCollected, err)
	}
	return len(families), nil
}
