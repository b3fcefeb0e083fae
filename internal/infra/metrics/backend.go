package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(backendRequestDuration) }

var backendRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "billing_backend_request_duration_seconds",
		Help:    "Latency of billing REST calls by endpoint and HTTP status (0 = transport error).",
		Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
	[]string{"endpoint", "status"},
)

func ObserveBackendRequest(endpoint string, status int, seconds float64) {
	backendRequestDuration.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(seconds)
}
