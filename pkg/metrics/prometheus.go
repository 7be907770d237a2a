// Package metrics provides Prometheus metrics for the trainboard service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors of the service.
type Manager struct {
	namespace   string
	subsystem   string
	buckets     []float64
	constLabels prometheus.Labels
	registry    prometheus.Registerer

	// Event pipeline
	eventsIngested  *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	eventsApplied   *prometheus.CounterVec
	eventsFailed    *prometheus.CounterVec

	// Rankings
	rankingsComputed      prometheus.Counter
	rankingLatency        prometheus.Histogram
	rankedMembers         prometheus.Gauge
	averageConductorCount prometheus.Gauge

	// Scheduling
	scheduleRuns    *prometheus.CounterVec
	unfilledSlots   *prometheus.CounterVec
	expiredRecords  *prometheus.CounterVec
	restoredRecords *prometheus.CounterVec

	settingsVersion prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Workers
	workerActive  prometheus.Gauge
	workerLatency prometheus.Histogram
	workerErrors  prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

var (
	globalManager  *Manager
	customRegistry = prometheus.NewRegistry()
	initOnce       sync.Once
)

func manager() *Manager {
	initOnce.Do(func() {
		globalManager = NewManager(WithPrometheusRegistry(customRegistry))
	})
	return globalManager
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "trainboard",
		subsystem: "conductor",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.buckets}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounterVec(m.counterOpts("events_ingested_total", "Events accepted for processing"), []string{"kind"})
	m.eventsDuplicate = auto.NewCounter(m.counterOpts("events_duplicate_total", "Events rejected as duplicates"))
	m.eventsApplied = auto.NewCounterVec(m.counterOpts("events_applied_total", "Events applied to the store"), []string{"kind"})
	m.eventsFailed = auto.NewCounterVec(m.counterOpts("events_failed_total", "Events that failed to apply"), []string{"kind"})

	m.rankingsComputed = auto.NewCounter(m.counterOpts("rankings_computed_total", "Leaderboard computations"))
	m.rankingLatency = auto.NewHistogram(m.histogramOpts("ranking_duration_seconds", "Leaderboard computation time"))
	m.rankedMembers = auto.NewGauge(m.gaugeOpts("ranked_members", "Members on the latest leaderboard"))
	m.averageConductorCount = auto.NewGauge(m.gaugeOpts("average_conductor_count", "Alliance-wide average conductor count"))

	m.scheduleRuns = auto.NewCounterVec(m.counterOpts("schedule_runs_total", "Auto-schedule runs by outcome"), []string{"outcome", "committed"})
	m.unfilledSlots = auto.NewCounterVec(m.counterOpts("schedule_unfilled_slots_total", "Slots an auto-schedule run left empty"), []string{"slot"})
	m.expiredRecords = auto.NewCounterVec(m.counterOpts("records_expired_total", "Awards and recommendations consumed by duty"), []string{"type"})
	m.restoredRecords = auto.NewCounterVec(m.counterOpts("records_restored_total", "Awards and recommendations handed back by a replan or attendance fix"), []string{"type"})

	m.settingsVersion = auto.NewGauge(m.gaugeOpts("settings_version", "Current scoring settings version"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Events waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Events dequeued"))
	m.queueEnqueueErrors = auto.NewCounterVec(m.counterOpts("queue_enqueue_errors_total", "Rejected enqueues"), []string{"reason"})

	m.workerActive = auto.NewGauge(m.gaugeOpts("workers_active", "Running event workers"))
	m.workerLatency = auto.NewHistogram(m.histogramOpts("worker_processing_seconds", "Time to apply one event"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Events a worker failed to apply"))

	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_operation_seconds", "Store operation latency"), []string{"operation"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total", "Failed store operations"), []string{"operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_seconds", "HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total", "Errors by component and type"), []string{"component", "type"})
}

// RecordEventIngested counts an accepted event.
func RecordEventIngested(kind string) { manager().eventsIngested.WithLabelValues(kind).Inc() }

// RecordEventDuplicate counts a duplicate submission.
func RecordEventDuplicate() { manager().eventsDuplicate.Inc() }

// RecordEventApplied counts an event applied to the store.
func RecordEventApplied(kind string) { manager().eventsApplied.WithLabelValues(kind).Inc() }

// RecordEventFailed counts an event that could not be applied.
func RecordEventFailed(kind string) { manager().eventsFailed.WithLabelValues(kind).Inc() }

// RecordRankings records one leaderboard computation.
func RecordRankings(members int, average float64, d time.Duration) {
	m := manager()
	m.rankingsComputed.Inc()
	m.rankingLatency.Observe(d.Seconds())
	m.rankedMembers.Set(float64(members))
	m.averageConductorCount.Set(average)
}

// RecordScheduleRun records an auto-schedule run.
func RecordScheduleRun(complete, committed bool) {
	outcome := "partial"
	if complete {
		outcome = "complete"
	}
	manager().scheduleRuns.WithLabelValues(outcome, strconv.FormatBool(committed)).Inc()
}

// RecordUnfilledSlot counts an empty conductor or backup slot.
func RecordUnfilledSlot(slot string) { manager().unfilledSlots.WithLabelValues(slot).Inc() }

// RecordExpired counts consumed records of a type ("award" or "recommendation").
func RecordExpired(recordType string, n int) {
	if n > 0 {
		manager().expiredRecords.WithLabelValues(recordType).Add(float64(n))
	}
}

// RecordRestored counts records of a type returned to scoring.
func RecordRestored(recordType string, n int) {
	if n > 0 {
		manager().restoredRecords.WithLabelValues(recordType).Add(float64(n))
	}
}

// UpdateSettingsVersion sets the current settings version.
func UpdateSettingsVersion(v int) { manager().settingsVersion.Set(float64(v)) }

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) { manager().queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { manager().queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts an enqueued event.
func RecordQueueEnqueue() { manager().queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeued event.
func RecordQueueDequeue() { manager().queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	manager().queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(n int) { manager().workerActive.Set(float64(n)) }

// RecordWorkerProcessing observes the time taken to apply one event.
func RecordWorkerProcessing(d time.Duration) { manager().workerLatency.Observe(d.Seconds()) }

// RecordWorkerError counts a failed event application.
func RecordWorkerError() { manager().workerErrors.Inc() }

// RecordStoreOperation observes a store call and counts it as failed when
// err is non-nil.
func RecordStoreOperation(operation string, d time.Duration, err error) {
	m := manager()
	m.storeLatency.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.storeErrors.WithLabelValues(operation).Inc()
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	manager().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	manager().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordErrorByComponent counts an error.
func RecordErrorByComponent(component, errorType string) {
	manager().errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the registry backing the package-level recorders.
func GetRegistry() *prometheus.Registry {
	manager()
	return customRegistry
}
