// Package metrics exposes the service's Prometheus instrumentation. All
// methods are safe to call on a nil *Registry, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch kinds, one per external collaborator call.
const (
	KindEntities   = "entities"
	KindAttributes = "attributes"
	KindRelations  = "relations"
)

// Registry holds all metrics for the application.
type Registry struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	CacheWritesTotal *prometheus.CounterVec

	TreeSessions   prometheus.Gauge
	ExpandDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Registry with every metric registered on a private
// prometheus.Registry, plus the Go runtime and process collectors.
func New() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	r.initHTTPMetrics()
	r.initHierarchyMetrics()
	return r
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicetree_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devicetree_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}

func (r *Registry) initHierarchyMetrics() {
	r.FetchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicetree_fetches_total",
			Help: "Calls made to entity, attribute and relation fetchers",
		},
		[]string{"kind", "outcome"},
	)

	r.FetchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devicetree_fetch_duration_seconds",
			Help:    "Fetcher call latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)

	r.CacheWritesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicetree_cache_writes_total",
			Help: "Writes into the per-session hierarchy caches",
		},
		[]string{"cache"},
	)

	r.TreeSessions = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "devicetree_tree_sessions",
			Help: "Open tree sessions",
		},
	)

	r.ExpandDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devicetree_expand_duration_seconds",
			Help:    "Time to resolve and splice the children of an expanded node",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry, mainly for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveFetch records one fetcher call that started at start.
func (r *Registry) ObserveFetch(kind string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.FetchesTotal.WithLabelValues(kind, outcome(err)).Inc()
	r.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// CacheWrite counts a write into the named cache.
func (r *Registry) CacheWrite(cache string) {
	if r == nil {
		return
	}
	r.CacheWritesTotal.WithLabelValues(cache).Inc()
}

// ObserveExpand records an expand operation that started at start.
func (r *Registry) ObserveExpand(start time.Time, err error) {
	if r == nil {
		return
	}
	r.ExpandDuration.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
}

// SessionOpened increments the open-session gauge.
func (r *Registry) SessionOpened() {
	if r == nil {
		return
	}
	r.TreeSessions.Inc()
}

// SessionClosed decrements the open-session gauge.
func (r *Registry) SessionClosed() {
	if r == nil {
		return
	}
	r.TreeSessions.Dec()
}

// ObserveRequest records one completed HTTP request.
func (r *Registry) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
