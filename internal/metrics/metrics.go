// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "decostore"

// Metrics is the set of collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CartOperationsTotal *prometheus.CounterVec
	CartSessions        prometheus.Gauge

	PricingCalculationsTotal *prometheus.CounterVec
	QuotesSavedTotal         *prometheus.CounterVec
	CartEventsPublished      *prometheus.CounterVec
}

// New creates the collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CartOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operations_total",
			Help:      "Cart operations by outcome",
		}, []string{"operation", "outcome"}),
		CartSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "sessions",
			Help:      "Cart managers currently held in memory",
		}),
		PricingCalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "calculations_total",
			Help:      "Quote price calculations by outcome",
		}, []string{"outcome"}),
		QuotesSavedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quote",
			Name:      "saved_total",
			Help:      "Saved quotes by outcome",
		}, []string{"outcome"}),
		CartEventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Cart events handed to the broker by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CartOperationsTotal,
		m.CartSessions,
		m.PricingCalculationsTotal,
		m.QuotesSavedTotal,
		m.CartEventsPublished,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCartOperation records a cart operation outcome.
func (m *Metrics) ObserveCartOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.CartOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetCartSessions sets the number of live cart managers.
func (m *Metrics) SetCartSessions(n int) {
	if m == nil {
		return
	}
	m.CartSessions.Set(float64(n))
}

// ObservePricing records a price calculation outcome.
func (m *Metrics) ObservePricing(outcome string) {
	if m == nil {
		return
	}
	m.PricingCalculationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveQuoteSaved records a quote save outcome.
func (m *Metrics) ObserveQuoteSaved(outcome string) {
	if m == nil {
		return
	}
	m.QuotesSavedTotal.WithLabelValues(outcome).Inc()
}

// ObserveEventPublished records a broker publish outcome.
func (m *Metrics) ObserveEventPublished(outcome string) {
	if m == nil {
		return
	}
	m.CartEventsPublished.WithLabelValues(outcome).Inc()
}
