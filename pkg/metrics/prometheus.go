package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by gisc.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Analysis
	windowsEvaluated  *prometheus.CounterVec
	fitLatency        prometheus.Histogram
	maxDeviation      prometheus.Histogram
	influencers       prometheus.Gauge
	genuineActors     *prometheus.CounterVec
	chartsRendered    prometheus.Counter
	analysisRuns      *prometheus.CounterVec
	analysisDuration  prometheus.Histogram
	storeQueryLatency *prometheus.HistogramVec

	// Import
	eventsImported  prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsMalformed prometheus.Counter

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerActive       prometheus.Gauge
	workerLatency      prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gisc",
		subsystem:        "analysis",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.windowsEvaluated = m.counterVec("windows_evaluated_total",
		"Impact windows evaluated, by outcome", "outcome")
	m.fitLatency = m.histogram("fit_latency_milliseconds",
		"Polynomial fit latency in milliseconds", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})
	m.maxDeviation = m.histogram("max_deviation_watchers",
		"Maximum observed-vs-predicted deviation per window", []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000})
	m.influencers = m.gauge("influencers",
		"Influential actors selected in the last run")
	m.genuineActors = m.counterVec("genuineness_total",
		"Genuineness verdicts, by result", "result")
	m.chartsRendered = m.counter("charts_rendered_total",
		"Charts written by the renderer")
	m.analysisRuns = m.counterVec("runs_total",
		"Analysis runs, by status", "status")
	m.analysisDuration = m.histogram("run_duration_seconds",
		"Wall time of a full analysis run", []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900})
	m.storeQueryLatency = m.histogramVec("store_query_latency_milliseconds",
		"Event store query latency in milliseconds", "query")

	m.eventsImported = m.counter("events_imported_total",
		"Archive events written to the event store")
	m.eventsDuplicate = m.counter("events_duplicate_total",
		"Archive events skipped as already imported")
	m.eventsMalformed = m.counter("events_malformed_total",
		"Archive lines that could not be decoded")

	m.queueSize = m.gauge("queue_size", "Jobs currently buffered in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue attempts rejected")
	m.workerCount = m.gauge("worker_count", "Workers in the pool")
	m.workerActive = m.gauge("worker_active", "Workers currently processing a job")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds",
		"Per-job processing latency in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total",
		"Errors by component and type", "component", "type")
}

// RecordWindowOutcome counts an evaluated window by its outcome label.
func RecordWindowOutcome(outcome string) {
	globalManager.windowsEvaluated.WithLabelValues(outcome).Inc()
}

// RecordFitLatency records polynomial fit latency in milliseconds.
func RecordFitLatency(latencyMs float64) {
	globalManager.fitLatency.Observe(latencyMs)
}

// RecordMaxDeviation records a window's maximum deviation.
func RecordMaxDeviation(dev float64) {
	globalManager.maxDeviation.Observe(dev)
}

// UpdateInfluencers sets the number of selected influential actors.
func UpdateInfluencers(n int) {
	globalManager.influencers.Set(float64(n))
}

// RecordGenuineness counts a genuineness verdict.
func RecordGenuineness(genuine bool) {
	result := "not_genuine"
	if genuine {
		result = "genuine"
	}
	globalManager.genuineActors.WithLabelValues(result).Inc()
}

// RecordChartRendered counts a written chart.
func RecordChartRendered() {
	globalManager.chartsRendered.Inc()
}

// RecordRun records a finished analysis run.
func RecordRun(status string, seconds float64) {
	globalManager.analysisRuns.WithLabelValues(status).Inc()
	globalManager.analysisDuration.Observe(seconds)
}

// RecordStoreQueryLatency records an event store query latency in milliseconds.
func RecordStoreQueryLatency(query string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(query).Observe(latencyMs)
}

// RecordEventsImported adds n imported events.
func RecordEventsImported(n int) {
	globalManager.eventsImported.Add(float64(n))
}

// RecordEventDuplicate counts an event skipped as already imported.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventMalformed counts an undecodable archive line.
func RecordEventMalformed() {
	globalManager.eventsMalformed.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the pool size.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-job latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error against a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
