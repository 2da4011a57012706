package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connections counts currently open websocket connections.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_connections",
		Help: "Open websocket connections.",
	})

	// Rooms counts live rooms.
	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_rooms",
		Help: "Rooms with at least one participant.",
	})

	// Participants counts participants across all rooms.
	Participants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "presence_participants",
		Help: "Participants across all rooms.",
	})

	// Events counts inbound client events by name.
	Events = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_events_total",
		Help: "Inbound client events by event name.",
	}, []string{"event"})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
