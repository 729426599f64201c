package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements the Metrics interface using Prometheus.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Slot metrics
	slot           prometheus.Gauge
	slotRootAge    prometheus.Gauge
	slotDuration   *prometheus.HistogramVec
	slotsCommitted *prometheus.CounterVec
	slotsAborted   *prometheus.CounterVec

	// Operation metrics
	opsApplied *prometheus.CounterVec
	opsFailed  *prometheus.CounterVec
	batchSize  prometheus.Histogram

	// Witness metrics
	witnessEntries    prometheus.Gauge
	witnessBytes      prometheus.Gauge
	witnessMismatches prometheus.Counter

	// State store metrics
	stateStoreVersion prometheus.Gauge
	stateStoreGets    prometheus.Counter
	stateStoreSets    prometheus.Counter
	stateStoreDeletes prometheus.Counter
	commitLatency     prometheus.Histogram
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()

	m := &PrometheusMetrics{
		registry: registry,

		// Slot metrics
		slot: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "slot",
				Help:      "Last committed slot",
			},
		),
		slotRootAge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "slot_root_age_seconds",
				Help:      "Time since the last slot commit",
			},
		),
		slotDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "slot_duration_seconds",
				Help:      "Time from slot open to commit",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"mode"},
		),
		slotsCommitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slots_committed_total",
				Help:      "Total number of committed slots",
			},
			[]string{"mode"},
		),
		slotsAborted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slots_aborted_total",
				Help:      "Total number of aborted slots",
			},
			[]string{"reason"},
		),

		// Operation metrics
		opsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ops_applied_total",
				Help:      "Total number of successfully applied operations",
			},
			[]string{"module", "method"},
		),
		opsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ops_failed_total",
				Help:      "Total number of failed operations",
			},
			[]string{"module", "method", "reason"},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_size",
				Help:      "Number of operations per batch",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
			},
		),

		// Witness metrics
		witnessEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "witness_entries",
				Help:      "Number of entries in the last recorded witness",
			},
		),
		witnessBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "witness_bytes",
				Help:      "Encoded size of the last recorded witness in bytes",
			},
		),
		witnessMismatches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "witness_mismatches_total",
				Help:      "Total number of witness mismatches during verification",
			},
		),

		// State store metrics
		stateStoreVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "statestore_version",
				Help:      "Current state store version",
			},
		),
		stateStoreGets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statestore_gets_total",
				Help:      "Total number of state store get operations",
			},
		),
		stateStoreSets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statestore_sets_total",
				Help:      "Total number of state store set operations",
			},
		),
		stateStoreDeletes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statestore_deletes_total",
				Help:      "Total number of state store delete operations",
			},
		),
		commitLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "commit_latency_seconds",
				Help:      "Latency of slot commits",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),
	}

	// Register all metrics
	m.registerMetrics()

	return m
}

func (m *PrometheusMetrics) registerMetrics() {
	m.registry.MustRegister(
		// Slot metrics
		m.slot,
		m.slotRootAge,
		m.slotDuration,
		m.slotsCommitted,
		m.slotsAborted,

		// Operation metrics
		m.opsApplied,
		m.opsFailed,
		m.batchSize,

		// Witness metrics
		m.witnessEntries,
		m.witnessBytes,
		m.witnessMismatches,

		// State store metrics
		m.stateStoreVersion,
		m.stateStoreGets,
		m.stateStoreSets,
		m.stateStoreDeletes,
		m.commitLatency,
	)
}

// Slot metrics implementation

func (m *PrometheusMetrics) SetSlot(slot int64) {
	m.slot.Set(float64(slot))
}

func (m *PrometheusMetrics) SetSlotRootAge(age time.Duration) {
	m.slotRootAge.Set(age.Seconds())
}

func (m *PrometheusMetrics) ObserveSlotDuration(mode string, duration time.Duration) {
	m.slotDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) IncSlotsCommitted(mode string) {
	m.slotsCommitted.WithLabelValues(mode).Inc()
}

func (m *PrometheusMetrics) IncSlotsAborted(reason string) {
	m.slotsAborted.WithLabelValues(reason).Inc()
}

// Operation metrics implementation

func (m *PrometheusMetrics) IncOpsApplied(module, method string) {
	m.opsApplied.WithLabelValues(module, method).Inc()
}

func (m *PrometheusMetrics) IncOpsFailed(module, method, reason string) {
	m.opsFailed.WithLabelValues(module, method, reason).Inc()
}

func (m *PrometheusMetrics) ObserveBatchSize(count int) {
	m.batchSize.Observe(float64(count))
}

// Witness metrics implementation

func (m *PrometheusMetrics) SetWitnessEntries(count int) {
	m.witnessEntries.Set(float64(count))
}

func (m *PrometheusMetrics) SetWitnessBytes(size int) {
	m.witnessBytes.Set(float64(size))
}

func (m *PrometheusMetrics) IncWitnessMismatches() {
	m.witnessMismatches.Inc()
}

// State store metrics implementation

func (m *PrometheusMetrics) SetStateStoreVersion(version int64) {
	m.stateStoreVersion.Set(float64(version))
}

func (m *PrometheusMetrics) IncStateStoreGets() {
	m.stateStoreGets.Inc()
}

func (m *PrometheusMetrics) IncStateStoreSets() {
	m.stateStoreSets.Inc()
}

func (m *PrometheusMetrics) IncStateStoreDeletes() {
	m.stateStoreDeletes.Inc()
}

func (m *PrometheusMetrics) ObserveCommitLatency(latency time.Duration) {
	m.commitLatency.Observe(latency.Seconds())
}

// HTTPHandler returns an HTTP handler for serving metrics.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry: m.registry,
	})
}
