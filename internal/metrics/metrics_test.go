package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.Login(KindLogin, ResultOK)
	m.Login(KindLogin, ResultInvalid)
	m.Login(KindLogin, ResultInvalid)
	m.Signup(ResultDuplicate)
	m.SessionsDeleted(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoginsTotal.WithLabelValues(KindLogin, ResultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SignupsTotal.WithLabelValues(ResultDuplicate)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsEvicted))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `memberportal_logins_total{kind="login",result="invalid"} 2`)
	assert.Contains(t, rec.Body.String(), "memberportal_sessions_evicted_total 3")
}

func TestNew_Independent(t *testing.T) {
	a, b := New(), New()
	a.Signup(ResultOK)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SignupsTotal.WithLabelValues(ResultOK)))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login(KindLogin, ResultOK)
		m.Signup(ResultOK)
		m.RoleChange("admin", ResultOK)
		m.SessionCreated()
		m.SessionsDeleted(1)
	})
}
