package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for the login and refresh counters.
const (
	ResultSuccess            = "success"
	ResultUserNotFound       = "user_not_found"
	ResultInvalidCredentials = "invalid_credentials"
	ResultExpired            = "expired"
	ResultError              = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	Logins          *prometheus.CounterVec
	Refreshes       *prometheus.CounterVec
	SessionsEvicted prometheus.Counter
	SessionsReaped  prometheus.Counter
}

// New registers the service collectors on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"result"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refreshes_total",
			Help: "Refresh attempts by outcome.",
		}, []string{"result"}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_evicted_total",
			Help: "Sessions removed to keep a user within the session cap.",
		}),
		SessionsReaped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_reaped_total",
			Help: "Expired sessions removed by the reaper.",
		}),
	}

	m.registry.MustRegister(
		m.Logins,
		m.Refreshes,
		m.SessionsEvicted,
		m.SessionsReaped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
