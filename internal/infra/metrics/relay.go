package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(relayTicksTotal, relaySessionsPolled, relayTickDurationMs, relayActiveSessions)
}

var relayTicksTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "relay_ticks_total",
		Help: "Total number of relay loop ticks executed.",
	},
)

var relaySessionsPolled = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_sessions_polled_total",
		Help: "Per-session poll outcomes within relay ticks.",
	},
	[]string{"result"}, // 'ok', 'busy', 'auth_expired', 'invalid_credentials', 'mailbox_gone', 'transient'
)

var relayTickDurationMs = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "relay_tick_duration_ms",
		Help:    "Relay tick duration distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	},
)

var relayActiveSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "relay_active_sessions",
		Help: "Number of sessions inside the active window at the last tick.",
	},
)

func IncRelayTick() { relayTicksTotal.Inc() }

func IncSessionPoll(result string) { relaySessionsPolled.WithLabelValues(norm(result)).Inc() }

func ObserveTickDuration(ms float64) { relayTickDurationMs.Observe(ms) }

func SetActiveSessions(n int) { relayActiveSessions.Set(float64(n)) }

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
