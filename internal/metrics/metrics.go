// Package metrics holds the Prometheus collectors for authentication
// outcomes.  A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry      *prometheus.Registry
	logins        *prometheus.CounterVec
	resolutions   *prometheus.CounterVec
	gateDecisions *prometheus.CounterVec
}

// New registers the collectors, plus the Go and process collectors, on
// a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "role_auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "role_auth",
			Name:      "token_resolutions_total",
			Help:      "Bearer token resolutions by outcome.",
		}, []string{"outcome"}),
		gateDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "role_auth",
			Name:      "gate_decisions_total",
			Help:      "Role gate decisions by policy and result.",
		}, []string{"policy", "result"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins, m.resolutions, m.gateDecisions,
	)
	return m
}

func (m *Metrics) Login(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Resolution(outcome string) {
	if m != nil {
		m.resolutions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) GateDecision(policy string, allowed bool) {
	if m == nil {
		return
	}
	result := "deny"
	if allowed {
		result = "allow"
	}
	m.gateDecisions.WithLabelValues(policy, result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
