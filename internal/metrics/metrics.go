// Package metrics exposes import pipeline counters to Prometheus.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// guard their calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yasushihonda-acg/facility-care-input-form-sub002/internal/core"
)

const namespace = "care_import"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	outcomes       *prometheus.CounterVec
	candidates     *prometheus.CounterVec
	commitLatency  *prometheus.HistogramVec
	sourceFailures *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	inFlight       prometheus.Gauge
}

// New registers all collectors, plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Import outcomes by status.",
		}, []string{"status"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidates seen by source and state.",
		}, []string{"source", "state"}),
		commitLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_duration_seconds",
			Help:      "Time spent persisting a single item.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"status"}),
		sourceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_failures_total",
			Help:      "Fatal source errors by source and error code.",
		}, []string{"source", "code"}),
		importDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "End-to-end import attempt duration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imports_in_flight",
			Help:      "Import attempts currently committing.",
		}),
	}

	m.registry.MustRegister(
		m.outcomes,
		m.candidates,
		m.commitLatency,
		m.sourceFailures,
		m.importDuration,
		m.inFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry, mainly for tests and for
// registering extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveCommit implements core.CommitObserver.
func (m *Metrics) ObserveCommit(status core.OutcomeStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.commitLatency.WithLabelValues(string(status)).Observe(d.Seconds())
}

// ObservePrepared counts candidates by state for one attempt.
func (m *Metrics) ObservePrepared(src core.SourceKind, s core.Summary) {
	if m == nil {
		return
	}
	source := string(src)
	m.candidates.WithLabelValues(source, "valid").Add(float64(s.Valid))
	m.candidates.WithLabelValues(source, "duplicate").Add(float64(s.Duplicates))
	m.candidates.WithLabelValues(source, "invalid").Add(float64(s.Invalid))
}

// ObserveResult counts outcomes and records the attempt duration.
func (m *Metrics) ObserveResult(src core.SourceKind, r core.ImportResult, d time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(core.StatusSuccess)).Add(float64(r.Success))
	m.outcomes.WithLabelValues(string(core.StatusFailed)).Add(float64(r.Failed))
	m.outcomes.WithLabelValues(string(core.StatusSkipped)).Add(float64(r.Skipped))
	m.importDuration.WithLabelValues(string(src)).Observe(d.Seconds())
}

// SourceFailure counts a fatal error reading a source.
func (m *Metrics) SourceFailure(src core.SourceKind, code string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(string(src), code).Inc()
}

// ImportStarted and ImportFinished bracket a commit phase.
func (m *Metrics) ImportStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) ImportFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// PoolStats is a point-in-time view of a database connection pool.
type PoolStats struct {
	Total    int32
	Idle     int32
	Acquired int32
	Max      int32
}

// RegisterPool exports connection pool gauges read from stats at scrape
// time. Call it once per process.
func (m *Metrics) RegisterPool(stats func() PoolStats) {
	if m == nil || stats == nil {
		return
	}
	gauge := func(name, help string, pick func(PoolStats) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(pick(stats())) })
	}
	m.registry.MustRegister(
		gauge("connections", "Open connections.", func(s PoolStats) int32 { return s.Total }),
		gauge("idle_connections", "Idle connections.", func(s PoolStats) int32 { return s.Idle }),
		gauge("acquired_connections", "Connections in use.", func(s PoolStats) int32 { return s.Acquired }),
		gauge("max_connections", "Configured pool ceiling.", func(s PoolStats) int32 { return s.Max }),
	)
}
