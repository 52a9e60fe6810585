// Package metrics provides Prometheus metrics for the matchpulse prediction pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion
	eventsConsumed  *prometheus.CounterVec
	eventsProcessed *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	eventsDuplicate prometheus.Counter

	// Prediction pipeline
	predictionsEmitted   prometheus.Counter
	predictionFailures   *prometheus.CounterVec
	explanationsDegraded prometheus.Counter
	stageLatency         *prometheus.HistogramVec

	// Live state
	stateRetries     prometheus.Counter
	stateLostUpdates prometheus.Counter
	indexDocuments   prometheus.Gauge

	// Broker
	brokerPublished  *prometheus.CounterVec
	brokerPollErrors *prometheus.CounterVec
	queueSize        *prometheus.GaugeVec

	// Completion provider
	completionRequests *prometheus.CounterVec
	breakerOpen        prometheus.Gauge

	// Workers
	workerCount             prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchpulse",
		subsystem:        "pipeline",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.eventsConsumed = auto.NewCounterVec(
		m.counterOpts("events_consumed_total", "Events received from the broker by kind"),
		[]string{"kind"})
	m.eventsProcessed = auto.NewCounterVec(
		m.counterOpts("events_processed_total", "Events whose state mutation was applied, by kind"),
		[]string{"kind"})
	m.eventsDropped = auto.NewCounterVec(
		m.counterOpts("events_dropped_total", "Events dropped before reaching state, by kind and reason"),
		[]string{"kind", "reason"})
	m.eventsDuplicate = auto.NewCounter(
		m.counterOpts("events_duplicate_total", "Redelivered broker messages skipped by the dedupe window"))

	m.predictionsEmitted = auto.NewCounter(
		m.counterOpts("predictions_emitted_total", "Predictions persisted and published"))
	m.predictionFailures = auto.NewCounterVec(
		m.counterOpts("prediction_failures_total", "Triggered predictions that failed, by stage"),
		[]string{"stage"})
	m.explanationsDegraded = auto.NewCounter(
		m.counterOpts("explanations_degraded_total", "Predictions published with a placeholder explanation"))
	m.stageLatency = auto.NewHistogramVec(
		m.histogramOpts("stage_latency_milliseconds", "Pipeline stage latency in milliseconds"),
		[]string{"stage"})

	m.stateRetries = auto.NewCounter(
		m.counterOpts("state_cas_retries_total", "Live state compare-and-swap retries"))
	m.stateLostUpdates = auto.NewCounter(
		m.counterOpts("state_lost_updates_total", "Live state updates abandoned after the retry budget"))
	m.indexDocuments = auto.NewGauge(
		m.gaugeOpts("index_documents", "Documents loaded into the embedding index"))

	m.brokerPublished = auto.NewCounterVec(
		m.counterOpts("broker_published_total", "Messages published by topic"),
		[]string{"topic"})
	m.brokerPollErrors = auto.NewCounterVec(
		m.counterOpts("broker_poll_errors_total", "Failed broker polls by topic"),
		[]string{"topic"})
	m.queueSize = auto.NewGaugeVec(
		m.gaugeOpts("queue_size", "Backlog of the in-memory broker by topic"),
		[]string{"topic"})

	m.completionRequests = auto.NewCounterVec(
		m.counterOpts("completion_requests_total", "Completion provider calls by outcome"),
		[]string{"outcome"})
	m.breakerOpen = auto.NewGauge(
		m.gaugeOpts("completion_breaker_open", "1 when the completion circuit breaker is open"))

	m.workerCount = auto.NewGauge(
		m.gaugeOpts("worker_count", "Current number of stream consumers"))
	m.workerMessagesPerSecond = auto.NewGauge(
		m.gaugeOpts("worker_messages_per_second", "Messages processed per second across workers"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordEventConsumed counts an event received from the broker.
func RecordEventConsumed(kind string) {
	globalManager.eventsConsumed.WithLabelValues(kind).Inc()
}

// RecordEventProcessed counts an event whose state mutation took effect.
func RecordEventProcessed(kind string) {
	globalManager.eventsProcessed.WithLabelValues(kind).Inc()
}

// RecordEventDropped counts an event rejected before reaching state.
func RecordEventDropped(kind, reason string) {
	globalManager.eventsDropped.WithLabelValues(kind, reason).Inc()
}

// RecordEventDuplicate counts a redelivered message.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordPredictionEmitted counts a persisted and published prediction.
func RecordPredictionEmitted() {
	globalManager.predictionsEmitted.Inc()
}

// RecordPredictionFailure counts a triggered prediction lost at stage.
func RecordPredictionFailure(stage string) {
	globalManager.predictionFailures.WithLabelValues(stage).Inc()
}

// RecordExplanationDegraded counts a placeholder explanation.
func RecordExplanationDegraded() {
	globalManager.explanationsDegraded.Inc()
}

// RecordStageLatency records the duration of one pipeline stage in milliseconds.
func RecordStageLatency(stage string, latencyMs float64) {
	globalManager.stageLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordStateRetry counts a compare-and-swap conflict on live state.
func RecordStateRetry() {
	globalManager.stateRetries.Inc()
}

// RecordStateLostUpdate counts an update abandoned after the retry budget.
func RecordStateLostUpdate() {
	globalManager.stateLostUpdates.Inc()
}

// UpdateIndexDocuments sets the number of indexed documents.
func UpdateIndexDocuments(count int) {
	globalManager.indexDocuments.Set(float64(count))
}

// RecordBrokerPublished counts a published message.
func RecordBrokerPublished(topic string) {
	globalManager.brokerPublished.WithLabelValues(topic).Inc()
}

// RecordBrokerPollError counts a failed poll.
func RecordBrokerPollError(topic string) {
	globalManager.brokerPollErrors.WithLabelValues(topic).Inc()
}

// UpdateQueueSize sets the in-memory backlog for topic.
func UpdateQueueSize(topic string, size int) {
	globalManager.queueSize.WithLabelValues(topic).Set(float64(size))
}

// RecordCompletionRequest counts a completion call by outcome (ok, error, rejected).
func RecordCompletionRequest(outcome string) {
	globalManager.completionRequests.WithLabelValues(outcome).Inc()
}

// UpdateBreakerOpen reports the completion breaker state.
func UpdateBreakerOpen(open bool) {
	v := 0.0
	if open {
		v = 1
	}
	globalManager.breakerOpen.Set(v)
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the aggregate worker throughput.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
