// Package metrics holds the Prometheus collectors shared by the triplestore
// gateway, the query orchestrator and the cart engine.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartcom"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics owns a private registry and the SmartCom collectors.
type Metrics struct {
	registry *prometheus.Registry

	translations  *prometheus.CounterVec   // Translations by winning strategy
	rateLimited   prometheus.Counter       // Questions rejected by the limiter
	storeRequests *prometheus.CounterVec   // Triplestore requests by operation and outcome
	storeDuration *prometheus.HistogramVec // Triplestore latency by operation
	checkouts     *prometheus.CounterVec   // Checkout attempts by outcome
}

// New creates and registers the collectors on a fresh registry, together with
// the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		translations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nlq",
			Name:      "translations_total",
			Help:      "Natural language translations by strategy",
		}, []string{"strategy"}),

		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "nlq",
			Name:      "rate_limited_total",
			Help:      "Questions rejected by the translation rate limit",
		}),

		storeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "triplestore",
			Name:      "requests_total",
			Help:      "Triplestore requests by operation and outcome",
		}, []string{"operation", "outcome"}),

		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "triplestore",
			Name:      "request_duration_seconds",
			Help:      "Triplestore request latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),

		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.translations,
		m.rateLimited,
		m.storeRequests,
		m.storeDuration,
		m.checkouts,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CountTranslation records a translation produced by strategy.
func (m *Metrics) CountTranslation(strategy string) {
	if m == nil {
		return
	}
	m.translations.WithLabelValues(strategy).Inc()
}

// CountRateLimited records a rejected question.
func (m *Metrics) CountRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// ObserveStoreRequest records one triplestore round trip.
func (m *Metrics) ObserveStoreRequest(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.storeRequests.WithLabelValues(operation, outcome).Inc()
	m.storeDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// CountCheckout records a checkout attempt. Outcomes are "committed",
// "empty" and "error".
func (m *Metrics) CountCheckout(outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}
