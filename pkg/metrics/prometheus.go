// Package metrics provides Prometheus metrics for the RedStone oracle service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Oracle pipeline
	payloadsProcessed *prometheus.CounterVec
	payloadErrors     *prometheus.CounterVec
	processingLatency prometheus.Histogram
	pricesWritten     prometheus.Counter
	guardRejections   *prometheus.CounterVec
	feedsStored       prometheus.Gauge

	// Chunked relay
	chunksReceived   prometheus.Counter
	chunksCompleted  prometheus.Counter
	chunkResultHits  prometheus.Counter
	chunkResultMiss  prometheus.Counter
	chunkBuffersOpen prometheus.Gauge

	// Async submissions
	submissionsAccepted  prometheus.Counter
	submissionsDuplicate prometheus.Counter

	// Store
	storeUpdateLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueue           prometheus.Counter
	queueDequeue           prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRateLimited     prometheus.Counter

	errorsByComponent *prometheus.CounterVec

	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // service registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "redstone",
		subsystem:        "oracle",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.payloadsProcessed = m.counterVec("payloads_processed_total", "Payloads processed successfully by operation", "operation")
	m.payloadErrors = m.counterVec("payload_errors_total", "Payload processing failures by operation and error code", "operation", "code")
	m.processingLatency = m.histogram("processing_latency_milliseconds", "Decode, validate and aggregate latency in milliseconds")
	m.pricesWritten = m.counter("prices_written_total", "Feed values persisted")
	m.guardRejections = m.counterVec("guard_rejections_total", "Writes refused by the update guard by error code", "code")
	m.feedsStored = m.gauge("feeds_stored", "Feeds with a stored value")

	m.chunksReceived = m.counter("chunks_received_total", "Payload chunks received by the relay")
	m.chunksCompleted = m.counter("chunks_completed_total", "Chunk sets whose hash matched")
	m.chunkResultHits = m.counter("chunk_result_cache_hits_total", "Relay reads served from the result cache")
	m.chunkResultMiss = m.counter("chunk_result_cache_misses_total", "Relay reads that processed the payload")
	m.chunkBuffersOpen = m.gauge("chunk_buffers_open", "Chunk buffers held by the relay")

	m.submissionsAccepted = m.counter("submissions_accepted_total", "Async write submissions accepted")
	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Async write submissions dropped as duplicates")

	m.storeUpdateLatency = m.histogram("store_update_latency_milliseconds", "Price store update latency in milliseconds")
	m.storeQueryLatency = m.histogram("store_query_latency_milliseconds", "Price store read latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Current size of the submission queue")
	m.queueCapacity = m.gauge("queue_capacity", "Submission queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Submission queue utilization (0..1)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Submissions enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Submissions dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue failures")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time a submission waited in the queue")

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing")
	m.workerIdleCount = m.gauge("worker_idle_count", "Workers waiting for work")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Submissions that failed in a worker")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRateLimited = m.counter("http_rate_limited_total", "Requests refused by the rate limiter")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordPayloadProcessed counts a successful payload for operation.
func RecordPayloadProcessed(operation string) {
	globalManager.payloadsProcessed.WithLabelValues(operation).Inc()
}

// RecordPayloadError counts a failed payload with its oracle error code (0 when unknown).
func RecordPayloadError(operation string, code uint16) {
	globalManager.payloadErrors.WithLabelValues(operation, strconv.Itoa(int(code))).Inc()
}

func RecordProcessingLatency(latencyMs float64) {
	globalManager.processingLatency.Observe(latencyMs)
}

func RecordPricesWritten(n int) {
	globalManager.pricesWritten.Add(float64(n))
}

func RecordGuardRejection(code uint16) {
	globalManager.guardRejections.WithLabelValues(strconv.Itoa(int(code))).Inc()
}

func UpdateFeedsStored(n int) {
	globalManager.feedsStored.Set(float64(n))
}

// Relay

func RecordChunkReceived()   { globalManager.chunksReceived.Inc() }
func RecordChunksCompleted() { globalManager.chunksCompleted.Inc() }
func RecordChunkResultHit()  { globalManager.chunkResultHits.Inc() }
func RecordChunkResultMiss() { globalManager.chunkResultMiss.Inc() }

func UpdateChunkBuffersOpen(n int) {
	globalManager.chunkBuffersOpen.Set(float64(n))
}

// Submissions

func RecordSubmissionAccepted()  { globalManager.submissionsAccepted.Inc() }
func RecordSubmissionDuplicate() { globalManager.submissionsDuplicate.Inc() }

// Store

func RecordStoreUpdateLatency(latencyMs float64) {
	globalManager.storeUpdateLatency.Observe(latencyMs)
}

func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// Queue

func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

func RecordQueueEnqueue()      { globalManager.queueEnqueue.Inc() }
func RecordQueueDequeue()      { globalManager.queueDequeue.Inc() }
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers

func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

func RecordHTTPRateLimited() { globalManager.httpRateLimited.Inc() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// System

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry the service metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
