package metrics_test

import (
	"testing"

	"github.com/jrsteele09/go-phase-session/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveTransition("Authenticated")
	m.ObserveTransition("Authenticated")
	m.ObserveExchange("success")
	m.ObserveProvisioning("created")
	m.ObserveProxyExchange("error")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthTransitions.WithLabelValues("Authenticated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenExchanges.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProvisioningOutcomes.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProxyExchanges.WithLabelValues("error")))

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.ObserveTransition("NotAuthenticated")
		m.ObserveExchange("error")
		m.ObserveProvisioning("denied")
		m.ObserveProxyExchange("success")
	})
}
