// Package metrics holds the prometheus collectors of the auth flows.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK        = "ok"
	ResultInvalid   = "invalid"
	ResultDuplicate = "duplicate"
	ResultForbidden = "forbidden"
	ResultError     = "error"

	KindLogin      = "login"
	KindAdminLogin = "admin_login"
)

type Metrics struct {
	LoginsTotal     *prometheus.CounterVec
	SignupsTotal    *prometheus.CounterVec
	RoleChanges     *prometheus.CounterVec
	SessionsCreated prometheus.Counter
	SessionsEvicted prometheus.Counter

	registry *prometheus.Registry
}

// New registers the auth collectors plus the go and process collectors on a
// private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberportal_logins_total",
				Help: "Login attempts by kind and result",
			},
			[]string{"kind", "result"},
		),
		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberportal_signups_total",
				Help: "Signup attempts by result",
			},
			[]string{"result"},
		),
		RoleChanges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memberportal_role_changes_total",
				Help: "Role changes by target role and result",
			},
			[]string{"role", "result"},
		),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memberportal_sessions_created_total",
			Help: "Sessions created",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memberportal_sessions_evicted_total",
			Help: "Expired sessions removed by housekeeping",
		}),
		registry: registry,
	}
	registry.MustRegister(m.LoginsTotal, m.SignupsTotal, m.RoleChanges, m.SessionsCreated, m.SessionsEvicted)
	return m
}

// The recording methods are no-ops on a nil *Metrics.

func (m *Metrics) Login(kind, result string) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Signup(result string) {
	if m == nil {
		return
	}
	m.SignupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RoleChange(role, result string) {
	if m == nil {
		return
	}
	m.RoleChanges.WithLabelValues(role, result).Inc()
}

func (m *Metrics) SessionCreated() {
	if m == nil {
		return
	}
	m.SessionsCreated.Inc()
}

func (m *Metrics) SessionsDeleted(n int64) {
	if m == nil {
		return
	}
	m.SessionsEvicted.Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
