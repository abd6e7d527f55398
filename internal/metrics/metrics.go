// Package metrics exposes the client's prometheus collectors. The
// handler is mounted on the local control mux.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ReconnectAttempts prometheus.Counter
	PermanentFailures prometheus.Counter
	QueueDropped      prometheus.Counter
	MessagesSent      *prometheus.CounterVec
	MessagesReceived  *prometheus.CounterVec
	SyncActions       *prometheus.CounterVec
	Connected         prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_reconnect_attempts_total",
			Help: "Reconnect attempts scheduled after a dropped relay connection.",
		}),
		PermanentFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_permanent_failures_total",
			Help: "Times the reconnect budget was exhausted.",
		}),
		QueueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "coview_queue_dropped_total",
			Help: "Outbound messages dropped from the pending queue on overflow.",
		}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coview_messages_sent_total",
			Help: "Messages transmitted to the relay by type.",
		}, []string{"type"}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coview_messages_received_total",
			Help: "Messages received from the relay by type.",
		}, []string{"type"}),
		SyncActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "coview_sync_actions_total",
			Help: "Playback corrections applied by kind.",
		}, []string{"kind"}),
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coview_connected",
			Help: "1 while the relay channel is open.",
		}),
	}

	reg.MustRegister(
		m.ReconnectAttempts,
		m.PermanentFailures,
		m.QueueDropped,
		m.MessagesSent,
		m.MessagesReceived,
		m.SyncActions,
		m.Connected,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
