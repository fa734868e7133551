// Package metrics bundles the Prometheus collectors of the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "etgcatalog"

// Metrics owns a dedicated registry so tests can build as many as they like.
// All methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	UpstreamRequests *prometheus.CounterVec
	UpstreamRetries  prometheus.Counter
	UpstreamDuration prometheus.Histogram

	Pages          *prometheus.CounterVec
	ProductsMerged prometheus.Counter
	Runs           *prometheus.CounterVec
	RunDuration    prometheus.Histogram

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Upstream HTTP attempts by status code (\"error\" for transport failures).",
			},
			[]string{"status"},
		),
		UpstreamRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_retries_total",
				Help:      "Retries scheduled by the outbound retry layer.",
			},
		),
		UpstreamDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Latency of single upstream attempts.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Catalog pages processed by result (ok, error, budget_exceeded).",
			},
			[]string{"result"},
		),
		ProductsMerged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "products_merged_total",
				Help:      "Unique products added to aggregation results.",
			},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Aggregation runs by outcome (ok, bootstrap_failed).",
			},
			[]string{"outcome"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall-clock duration of aggregation runs.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
			},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Served HTTP requests by route and status.",
			},
			[]string{"route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Served HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	registry.MustRegister(
		m.UpstreamRequests, m.UpstreamRetries, m.UpstreamDuration,
		m.Pages, m.ProductsMerged, m.Runs, m.RunDuration,
		m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

func (m *Metrics) ObserveUpstream(status int, err error, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if err == nil {
		label = strconv.Itoa(status)
	}
	m.UpstreamRequests.WithLabelValues(label).Inc()
	m.UpstreamDuration.Observe(d.Seconds())
}

func (m *Metrics) IncRetry() {
	if m == nil {
		return
	}
	m.UpstreamRetries.Inc()
}

func (m *Metrics) IncPage(result string) {
	if m == nil {
		return
	}
	m.Pages.WithLabelValues(result).Inc()
}

func (m *Metrics) AddProducts(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ProductsMerged.Add(float64(n))
}

func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
