// ABOUTME: Prometheus collectors for upstream API calls, refresh bumps and live view trees
// ABOUTME: Uses a private registry served by promhttp

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "factdesk"

// Metrics owns the console's collectors. The zero value is not usable;
// call New.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiDuration *prometheus.HistogramVec
	bumps       prometheus.Counter
	viewTrees   prometheus.Gauge
	duplicates  prometheus.Counter
}

// New creates and registers all collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Requests made to the upstream API, by route template and outcome.",
		}, []string{"method", "route", "outcome"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of upstream API requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		bumps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refresh",
			Name:      "bumps_total",
			Help:      "Refresh token increments across all view trees.",
		}),
		viewTrees: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "view_trees",
			Help:      "Live per-session view trees.",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "console",
			Name:      "duplicate_submissions_total",
			Help:      "Form posts rejected because their submission ID was already used.",
		}),
	}

	m.registry.MustRegister(
		m.apiRequests,
		m.apiDuration,
		m.bumps,
		m.viewTrees,
		m.duplicates,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest implements api.Observer.
func (m *Metrics) ObserveRequest(method, route, outcome string, elapsed time.Duration) {
	m.apiRequests.WithLabelValues(method, route, outcome).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RefreshBumped counts one refresh token increment.
func (m *Metrics) RefreshBumped() {
	m.bumps.Inc()
}

// SetViewTrees records the number of live view trees.
func (m *Metrics) SetViewTrees(n int) {
	m.viewTrees.Set(float64(n))
}

// DuplicateSubmission counts one rejected double submit.
func (m *Metrics) DuplicateSubmission() {
	m.duplicates.Inc()
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
