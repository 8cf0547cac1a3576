// Package metrics owns the server's Prometheus collectors. Every Metrics
// value has its own registry so tests never collide on global state.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shelfauth"

// Failure kinds used as the "kind" label.
const (
	KindExpired  = "expired"
	KindInvalid  = "invalid"
	KindNotFound = "principal_not_found"
	KindRevoked  = "revoked"
	KindInternal = "internal"
)

// Refresh outcomes used as the "outcome" label.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type Metrics struct {
	registry           *prometheus.Registry
	tokensIssued       *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	refreshes          *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens minted, by token type.",
		}, []string{"type"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_validation_failures_total",
			Help:      "Rejected access or refresh tokens, by failure kind.",
		}, []string{"kind"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Calls to the refresh endpoint, by outcome.",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		m.tokensIssued,
		m.validationFailures,
		m.refreshes,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// The methods below are safe on a nil *Metrics.

func (m *Metrics) TokenIssued(tokenType string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(tokenType).Inc()
}

func (m *Metrics) ValidationFailed(kind string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) Refreshed(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FailureKind maps a validation error to its label value.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return KindExpired
	case errors.Is(err, common.ErrPrincipalNotFound):
		return KindNotFound
	case errors.Is(err, common.ErrTokenInvalid):
		return KindInvalid
	default:
		return KindInternal
	}
}
