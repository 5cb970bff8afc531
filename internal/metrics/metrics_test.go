package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCounters(t *testing.T) {
	m := New()
	m.Login("success")
	m.Login("invalid_credentials")
	m.Login("invalid_credentials")
	m.Resolution("unknown_token")
	m.GateDecision("superadmin-only", false)
	m.GateDecision("admin-or-above", true)

	out := scrape(t, m)
	assert.Contains(t, out, `role_auth_logins_total{outcome="success"} 1`)
	assert.Contains(t, out, `role_auth_logins_total{outcome="invalid_credentials"} 2`)
	assert.Contains(t, out, `role_auth_token_resolutions_total{outcome="unknown_token"} 1`)
	assert.Contains(t, out, `role_auth_gate_decisions_total{policy="superadmin-only",result="deny"} 1`)
	assert.Contains(t, out, `role_auth_gate_decisions_total{policy="admin-or-above",result="allow"} 1`)
	assert.Contains(t, out, "go_goroutines")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login("success")
		m.Resolution("ok")
		m.GateDecision("admin-or-above", true)
	})
}
