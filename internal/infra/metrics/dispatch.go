package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal, socketConnections) }

var notificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_notifications_total",
		Help: "Notifications handed to dispatch sinks, labeled by transport and outcome.",
	},
	[]string{"transport", "status"}, // transport: 'chat', 'push'; status: 'delivered', 'undeliverable', 'failed'
)

var socketConnections = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "push_socket_connections",
		Help: "Currently registered WebSocket connections across all users.",
	},
)

func IncNotification(transport, status string) {
	notificationsTotal.WithLabelValues(norm(transport), norm(status)).Inc()
}

func IncSocketConnections() { socketConnections.Inc() }
func DecSocketConnections() { socketConnections.Dec() }
