package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "quickchat"

// Delivery outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeOffline   = "offline"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	Registry *prometheus.Registry

	DeliveryEvents    *prometheus.CounterVec
	OnlinePrincipals  prometheus.Gauge
	PresenceChanges   *prometheus.CounterVec
	ConnectionsClosed *prometheus.CounterVec
	MessagesStored    prometheus.Counter
	DeletesTotal      *prometheus.CounterVec
}

// New registers every collector on a fresh registry together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		DeliveryEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_events_total",
			Help:      "Live event forwards by event type and outcome.",
		}, []string{"event", "outcome"}),
		OnlinePrincipals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_principals",
			Help:      "Principals with a registered connection on this node.",
		}),
		PresenceChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_changes_total",
			Help:      "Presence transitions by direction.",
		}, []string{"state"}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Closed websocket connections by reason.",
		}, []string{"reason"}),
		MessagesStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_stored_total",
			Help:      "Messages appended to the store.",
		}),
		DeletesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_deletes_total",
			Help:      "Message deletions by mode.",
		}, []string{"mode"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.DeliveryEvents,
		m.OnlinePrincipals,
		m.PresenceChanges,
		m.ConnectionsClosed,
		m.MessagesStored,
		m.DeletesTotal,
	)
	return m
}
