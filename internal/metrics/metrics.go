// Package metrics holds the Prometheus collectors exposed on the HTTP /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors recorded by the interceptors and the mutation pipeline.
type Metrics struct {
	Registry     *prometheus.Registry
	RPCs         *prometheus.CounterVec
	RPCDuration  *prometheus.HistogramVec
	Mutations    *prometheus.CounterVec
	AuthzDenials *prometheus.CounterVec
	HTTPLimited  prometheus.Counter
}

// New registers every collector, plus the Go and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		RPCs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prodmatic",
			Name:      "rpc_requests_total",
			Help:      "Unary RPCs handled, by method and status code.",
		}, []string{"method", "code"}),
		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "prodmatic",
			Name:      "rpc_duration_seconds",
			Help:      "Unary RPC latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prodmatic",
			Name:      "mutations_total",
			Help:      "Mutations run through the pipeline, by entity type, action and outcome.",
		}, []string{"entity_type", "action", "outcome"}),
		AuthzDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "prodmatic",
			Name:      "authz_denials_total",
			Help:      "Mutations rejected by the role guard or an organization policy.",
		}, []string{"entity_type"}),
		HTTPLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "prodmatic",
			Name:      "http_rate_limited_total",
			Help:      "Gateway requests rejected by the rate limiter.",
		}),
	}
	reg.MustRegister(
		m.RPCs, m.RPCDuration, m.Mutations, m.AuthzDenials, m.HTTPLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Outcome labels for Mutations.
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// ObserveMutation increments Mutations. Safe on a nil receiver.
func (m *Metrics) ObserveMutation(entityType, action, outcome string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(entityType, action, outcome).Inc()
	if outcome == OutcomeUnauthorized {
		m.AuthzDenials.WithLabelValues(entityType).Inc()
	}
}
