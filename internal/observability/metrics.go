package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UnmatchedRoute is the route label used for requests that match no
// compiled route, keeping label cardinality bounded.
const UnmatchedRoute = "<unmatched>"

// Build results and triggers used as label values.
const (
	BuildResultSuccess = "success"
	BuildResultFailure = "failure"

	BuildTriggerInitial = "initial"
	BuildTriggerWatch   = "watch"
	BuildTriggerManual  = "manual"
)

// Metrics holds all Prometheus metrics for the route server.
type Metrics struct {
	buildsTotal        *prometheus.CounterVec
	buildDuration      prometheus.Histogram
	routes             prometheus.Gauge
	snapshotSwaps      prometheus.Counter
	snapshotGeneration prometheus.Gauge
	watchEvents        *prometheus.CounterVec
	rebuildsCoalesced  prometheus.Counter
	inFlight           prometheus.Gauge
	dispatchTotal      *prometheus.CounterVec
	dispatchDuration   *prometheus.HistogramVec
	registry           *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wiggly"
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.buildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Total number of route table builds",
		},
		[]string{"trigger", "result"},
	)

	m.buildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of route table builds in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	m.routes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "routes",
			Help:      "Number of routes in the published snapshot",
		},
	)

	m.snapshotSwaps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_swaps_total",
			Help:      "Total number of published snapshot replacements",
		},
	)

	m.snapshotGeneration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_generation",
			Help:      "Generation number of the published snapshot",
		},
	)

	m.watchEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Total number of file system events observed by the watcher",
		},
		[]string{"kind"},
	)

	m.rebuildsCoalesced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_coalesced_total",
			Help:      "Rebuild requests folded into an already pending rebuild",
		},
	)

	m.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_in_flight",
			Help:      "Requests currently dispatching",
		},
	)

	m.dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_requests_total",
			Help:      "Total number of dispatched requests",
		},
		[]string{"method", "route", "status"},
	)

	m.dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Request dispatch duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "route"},
	)

	m.registerCollectors()

	return m
}

// registerCollectors registers all metric collectors with the
// dedicated registry, along with the Go runtime and process collectors.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.buildsTotal,
		m.buildDuration,
		m.routes,
		m.snapshotSwaps,
		m.snapshotGeneration,
		m.watchEvents,
		m.rebuildsCoalesced,
		m.inFlight,
		m.dispatchTotal,
		m.dispatchDuration,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordBuild records one run of the build pipeline.
func (m *Metrics) RecordBuild(trigger, result string, duration time.Duration) {
	m.buildsTotal.WithLabelValues(trigger, result).Inc()
	m.buildDuration.Observe(duration.Seconds())
}

// RecordSwap records the publication of a snapshot.
func (m *Metrics) RecordSwap(generation uint64, routes int) {
	m.snapshotSwaps.Inc()
	m.snapshotGeneration.Set(float64(generation))
	m.routes.Set(float64(routes))
}

// RecordWatchEvent records a raw file system event.
func (m *Metrics) RecordWatchEvent(kind string) {
	m.watchEvents.WithLabelValues(kind).Inc()
}

// RecordCoalescedRebuild records a rebuild request absorbed by a pending one.
func (m *Metrics) RecordCoalescedRebuild() {
	m.rebuildsCoalesced.Inc()
}

// IncInFlight increments the dispatching request gauge.
func (m *Metrics) IncInFlight() {
	m.inFlight.Inc()
}

// DecInFlight decrements the dispatching request gauge.
func (m *Metrics) DecInFlight() {
	m.inFlight.Dec()
}

// RecordDispatch records a dispatched request.
func (m *Metrics) RecordDispatch(method, route string, status int, duration time.Duration) {
	m.dispatchTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.dispatchDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MustRegisterCollector registers an additional collector with the
// metrics registry.
func (m *Metrics) MustRegisterCollector(c prometheus.Collector) {
	m.registry.MustRegister(c)
}
