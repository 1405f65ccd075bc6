// Package metrics provides Prometheus metrics for council runs, web search
// and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every collector and the registry they live on.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	councilRuns        *prometheus.CounterVec
	councilDuration    prometheus.Histogram
	memberResults      *prometheus.CounterVec
	memberDuration     *prometheus.HistogramVec
	searchRequests     *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpRequestLatency *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom buckets for duration histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRegistry registers collectors on r instead of a fresh registry.
func WithRegistry(r *prometheus.Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// NewManager creates a Manager. Each Manager uses its own registry unless
// WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "oracles",
		histogramBuckets: []float64{1, 5, 10, 20, 30, 60, 90, 120, 180, 300},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.councilRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "council",
		Name:      "runs_total",
		Help:      "Council runs by outcome (ok, partial, failed)",
	}, []string{"outcome"})

	m.councilDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "council",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of council runs",
		Buckets:   m.histogramBuckets,
	})

	m.memberResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "council",
		Name:      "member_results_total",
		Help:      "Per-member outcomes; result is ok or a failure kind",
	}, []string{"member", "result"})

	m.memberDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "council",
		Name:      "member_duration_seconds",
		Help:      "Duration of one member's research and predict phases",
		Buckets:   m.histogramBuckets,
	}, []string{"member"})

	m.searchRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "search",
		Name:      "requests_total",
		Help:      "Web-search requests by provider, cache hit and result",
	}, []string{"provider", "cached", "result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	m.httpRequestLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
}

// MemberSettled records one member's outcome.
func (m *Manager) MemberSettled(member, kind string, d time.Duration) {
	m.memberResults.WithLabelValues(member, kind).Inc()
	m.memberDuration.WithLabelValues(member).Observe(d.Seconds())
}

// CouncilSettled records a finished council run.
func (m *Manager) CouncilSettled(outcome string, _, _ int, d time.Duration) {
	m.councilRuns.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.councilDuration.Observe(d.Seconds())
	}
}

// SearchCompleted records a web-search call.
func (m *Manager) SearchCompleted(provider string, cached bool, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.searchRequests.WithLabelValues(provider, strconv.FormatBool(cached), result).Inc()
}

// ObserveHTTP records one served request.
func (m *Manager) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler exposes the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}
