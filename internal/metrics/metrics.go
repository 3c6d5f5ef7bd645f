// Package metrics exposes gateway and API limiter metrics to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "adminguard"

// Metrics holds the collectors registered for one process
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	dailyCost          *prometheus.GaugeVec
	rateLimitDecisions *prometheus.CounterVec
	costAlerts         prometheus.Counter
	authEvents         *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		dailyCost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_api_cost_dollars",
			Help:      "Estimated cumulative cost of protected API calls for the current UTC day.",
		}, []string{"last_api_call"}),
		rateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_rate_limit_decisions_total",
			Help:      "Rate limit decisions for protected API calls.",
		}, []string{"api_call", "outcome"}),
		costAlerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_alerts_total",
			Help:      "Daily cost threshold alerts raised.",
		}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_events_total",
			Help:      "Audited gateway security events by action type.",
		}, []string{"action_type"}),
	}

	m.registry.MustRegister(
		m.httpInFlight,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.dailyCost,
		m.rateLimitDecisions,
		m.costAlerts,
		m.authEvents,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry, for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordDailyCost publishes the running total for today
func (m *Metrics) RecordDailyCost(apiCall string, total float64) {
	if m == nil {
		return
	}
	m.dailyCost.Reset()
	m.dailyCost.WithLabelValues(apiCall).Set(total)
}

// RecordRateLimitDecision counts one limiter outcome ("allowed" or a rejection reason)
func (m *Metrics) RecordRateLimitDecision(apiCall, outcome string) {
	if m == nil {
		return
	}
	m.rateLimitDecisions.WithLabelValues(apiCall, outcome).Inc()
}

// RecordCostAlert counts one threshold crossing
func (m *Metrics) RecordCostAlert() {
	if m == nil {
		return
	}
	m.costAlerts.Inc()
}

// RecordAuthEvent counts one audited security event
func (m *Metrics) RecordAuthEvent(actionType string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(actionType).Inc()
}

// Instrument measures request count, latency and concurrency. Routes are
// labelled by their chi pattern so arbitrary proxied paths do not explode
// label cardinality.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := routePattern(r)
		status := strconv.Itoa(sw.code)
		m.httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
