// Package metrics provides Prometheus metrics for the lead capture backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boothlead"

// Scan outcomes.
const (
	ScanCreated  = "created"
	ScanRejected = "rejected"
	ScanFailed   = "failed"
)

// Enrichment job results.
const (
	EnrichmentApplied = "applied"
	EnrichmentRetried = "retried"
	EnrichmentDropped = "dropped"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	scans           *prometheus.CounterVec
	compatFallbacks *prometheus.CounterVec
	storeLatency    *prometheus.HistogramVec
	enrichmentJobs  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
}

// New creates collectors on a private registry so tests can build as many
// instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.scans = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "leads",
		Name:      "scans_total",
		Help:      "Badge scans by outcome",
	}, []string{"outcome"})

	m.compatFallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "compat_fallbacks_total",
		Help:      "Write candidates rejected for an unknown column and retried with the next shape",
	}, []string{"table", "candidate"})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "request_duration_seconds",
		Help:      "Latency of remote store requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op", "table", "result"})

	m.enrichmentJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "enrichment",
		Name:      "jobs_total",
		Help:      "Enrichment jobs by result",
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	reg.MustRegister(collectors.NewGoCollector())
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Scan counts one badge scan.
func (m *Metrics) Scan(outcome string) {
	if m == nil {
		return
	}
	m.scans.WithLabelValues(outcome).Inc()
}

// CompatFallback counts a rejected write candidate.
func (m *Metrics) CompatFallback(table, candidate string) {
	if m == nil {
		return
	}
	m.compatFallbacks.WithLabelValues(table, candidate).Inc()
}

// ObserveStore records one remote store request. Its signature matches
// store.Observer.
func (m *Metrics) ObserveStore(op, table string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.storeLatency.WithLabelValues(op, table, result).Observe(elapsed.Seconds())
}

// EnrichmentJob counts a processed enrichment job.
func (m *Metrics) EnrichmentJob(result string) {
	if m == nil {
		return
	}
	m.enrichmentJobs.WithLabelValues(result).Inc()
}

// HTTPRequest counts a served request.
func (m *Metrics) HTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
}
