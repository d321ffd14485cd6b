// Package metrics holds the Prometheus counters for session lifecycle events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "phase_session"

// Metrics is safe to use through a nil pointer; every observation is then a no-op.
type Metrics struct {
	AuthTransitions      *prometheus.CounterVec
	TokenExchanges       *prometheus.CounterVec
	ProvisioningOutcomes *prometheus.CounterVec
	ProxyExchanges       *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_transitions_total",
			Help:      "Auth state transitions by target state.",
		}, []string{"to"}),
		TokenExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_exchanges_total",
			Help:      "Client side token exchanges by outcome.",
		}, []string{"outcome"}),
		ProvisioningOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repo_provisioning_total",
			Help:      "Repository provisioning pipeline runs by outcome.",
		}, []string{"outcome"}),
		ProxyExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_exchanges_total",
			Help:      "Code exchanges served by the token proxy by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.AuthTransitions, m.TokenExchanges, m.ProvisioningOutcomes, m.ProxyExchanges)
	}
	return m
}

func (m *Metrics) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.AuthTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) ObserveExchange(outcome string) {
	if m == nil {
		return
	}
	m.TokenExchanges.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProvisioning(outcome string) {
	if m == nil {
		return
	}
	m.ProvisioningOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveProxyExchange(outcome string) {
	if m == nil {
		return
	}
	m.ProxyExchanges.WithLabelValues(outcome).Inc()
}
