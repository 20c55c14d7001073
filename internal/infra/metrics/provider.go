package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(providerCallsLatencyMs, tokenRefreshesTotal) }

var providerCallsLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "provider_calls_latency_ms",
		Help:    "Mail provider call latency distribution in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000},
	},
	[]string{"op", "success"}, // op: 'list', 'fetch', 'delete', 'token', 'account', 'domains'
)

var tokenRefreshesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "token_refreshes_total",
		Help: "Auth token refresh attempts, labeled by outcome.",
	},
	[]string{"result"}, // 'ok', 'invalid_credentials', 'transient'
)

func ObserveProviderCall(op string, latencyMs float64, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	providerCallsLatencyMs.WithLabelValues(norm(op), s).Observe(latencyMs)
}

func IncTokenRefresh(result string) {
	tokenRefreshesTotal.WithLabelValues(norm(result)).Inc()
}
