// Prometheus instrumentation for the live layer. Cardinality stays bounded:
// the only labeled dimension is the inbound event name, which is a small
// fixed vocabulary defined in events.go.
package ws

import "github.com/prometheus/client_golang/prometheus"

var (
	// wsConnections gauges open WebSocket connections, authenticated or not.
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "ws",
			Name:      "connections_open",
			Help: "Current number of open WebSocket connections.",
		},
	)

	// wsSessions gauges identities currently holding a presence registration.
	// At most one per user, so it is bounded by the user population and can
	// be lower than chat_ws_connections_open when displaced handles linger.
	wsSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chat",
			Subsystem: "ws",
			Name:      "sessions_online",
			Help: "Current number of online (presence-registered) users.",
		},
	)

	// wsEvents counts inbound frames by event name, including unknown ones.
	wsEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Subsystem: "ws",
			Name:      "events_total",
			Help: "Total number of inbound WebSocket events by name.",
		},
		[]string{"event"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsSessions, wsEvents)
}
