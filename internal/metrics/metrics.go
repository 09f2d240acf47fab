// README: Prometheus collectors for HTTP traffic, quotes and zone mapping fetches.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports. All record methods are
// safe to call on a nil *Metrics so tests can skip wiring it.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	QuotesTotal       *prometheus.CounterVec
	QuoteFinalPrice   prometheus.Histogram
	ZoneFetchesTotal  *prometheus.CounterVec
	ZoneInvalidations prometheus.Counter

	PackagesCreated    prometheus.Counter
	PackageTransitions *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quotes_total",
			Help:      "Price quotes by outcome and route kind.",
		}, []string{"outcome", "route"}),
		QuoteFinalPrice: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "quote_final_price_try",
			Help:      "Final quoted price in TRY.",
			Buckets:   []float64{500, 750, 1000, 1500, 2000, 2500, 3000, 3500, 4000, 5000, 6000},
		}),
		ZoneFetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "zones",
			Name:      "fetches_total",
			Help:      "District to zone mapping fetches by result.",
		}, []string{"result"}),
		ZoneInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "zones",
			Name:      "invalidations_total",
			Help:      "Zone mapping cache invalidations.",
		}),
		PackagesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "packages",
			Name:      "created_total",
			Help:      "Delivery packages accepted.",
		}),
		PackageTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "packages",
			Name:      "transitions_total",
			Help:      "Package status transitions by target status.",
		}, []string{"to"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QuotesTotal,
		m.QuoteFinalPrice,
		m.ZoneFetchesTotal,
		m.ZoneInvalidations,
		m.PackagesCreated,
		m.PackageTransitions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry (used by tests to gather values).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (m *Metrics) RecordQuote(outcome, route string, finalPrice int64) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(outcome, route).Inc()
	if outcome == "ok" {
		m.QuoteFinalPrice.Observe(float64(finalPrice))
	}
}

func (m *Metrics) RecordZoneFetch(result string) {
	if m == nil {
		return
	}
	m.ZoneFetchesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordZoneInvalidation() {
	if m == nil {
		return
	}
	m.ZoneInvalidations.Inc()
}

func (m *Metrics) RecordPackageCreated() {
	if m == nil {
		return
	}
	m.PackagesCreated.Inc()
}

func (m *Metrics) RecordPackageTransition(to string) {
	if m == nil {
		return
	}
	m.PackageTransitions.WithLabelValues(to).Inc()
}
