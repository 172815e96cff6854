// Package metrics holds the Prometheus collectors of the album service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "album"

// Refresh outcomes.
const (
	OutcomeCompleted  = "completed"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
)

// Hydration outcomes.
const (
	HydrationStored    = "stored"
	HydrationFailed    = "failed"
	HydrationDiscarded = "discarded"
)

// Metrics groups every collector. All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	refreshes        *prometheus.CounterVec
	activeRefreshes  prometheus.Gauge
	refreshDuration  prometheus.Histogram
	hydrations       *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	imageCache       *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers the service collectors, plus the Go and process collectors, on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: reg,
		refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Photo refreshes by outcome.",
		}, []string{"outcome"}),
		activeRefreshes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refreshes_active",
			Help:      "Refreshes that have not completed yet.",
		}),
		refreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time from refresh start to completion.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		hydrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hydrations_total",
			Help:      "Photo payload downloads by outcome.",
		}, []string{"outcome"}),
		upstreamRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound HTTP requests by kind and status.",
		}, []string{"kind", "status"}),
		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Outbound HTTP request latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		imageCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_cache_lookups_total",
			Help:      "Image cache lookups by result.",
		}, []string{"result"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
	}
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RefreshStarted() {
	if m == nil {
		return
	}
	m.activeRefreshes.Inc()
}

func (m *Metrics) RefreshFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.activeRefreshes.Dec()
	m.refreshes.WithLabelValues(outcome).Inc()
	m.refreshDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Hydration(outcome string) {
	if m == nil {
		return
	}
	m.hydrations.WithLabelValues(outcome).Inc()
}

// Upstream records one outbound request. status is zero for transport failures.
func (m *Metrics) Upstream(kind string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.upstreamRequests.WithLabelValues(kind, label).Inc()
	m.upstreamDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ImageCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.imageCache.WithLabelValues(result).Inc()
}

func (m *Metrics) HTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
