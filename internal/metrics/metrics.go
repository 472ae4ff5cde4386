// Package metrics exposes Prometheus instrumentation for the relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the relay's Prometheus collectors. All methods are safe to
// call on a nil receiver so instrumentation stays optional in tests.
type Metrics struct {
	registry *prometheus.Registry

	activeConnections prometheus.Gauge
	roomsCreated      prometheus.Counter
	messagesRelayed   prometheus.Counter
	domainErrors      *prometheus.CounterVec
}

// New builds the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chupchat_active_connections",
			Help: "Number of live websocket connections.",
		}),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chupchat_rooms_created_total",
			Help: "Number of rooms successfully created.",
		}),
		messagesRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chupchat_messages_relayed_total",
			Help: "Number of messages appended and fanned out.",
		}),
		domainErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chupchat_domain_errors_total",
			Help: "Domain errors surfaced to clients, by error code.",
		}, []string{"code"}),
	}

	reg.MustRegister(m.activeConnections, m.roomsCreated, m.messagesRelayed, m.domainErrors)
	return m
}

// Handler exposes the registry for a /metrics route.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) RoomCreated() {
	if m == nil {
		return
	}
	m.roomsCreated.Inc()
}

func (m *Metrics) MessageRelayed() {
	if m == nil {
		return
	}
	m.messagesRelayed.Inc()
}

func (m *Metrics) DomainError(code string) {
	if m == nil {
		return
	}
	m.domainErrors.WithLabelValues(code).Inc()
}
