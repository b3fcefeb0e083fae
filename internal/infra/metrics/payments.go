package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentInitiationsTotal,
		paymentPollsTotal,
		paymentOutcomesTotal,
	)
}

var (
	// result: ok|rejected|invalid|error
	paymentInitiationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_initiations_total",
			Help: "STK push initiations by result.",
		},
		[]string{"result"},
	)

	// status: the observed backend status, or "error" for a failed poll
	paymentPollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_status_polls_total",
			Help: "Payment status requests issued by trackers, by observed status.",
		},
		[]string{"status"},
	)

	// outcome: completed|failed|timeout|abandoned|cancelled
	paymentOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_tracking_outcomes_total",
			Help: "How payment tracking runs ended.",
		},
		[]string{"outcome"},
	)
)

func IncPaymentInitiation(result string) {
	paymentInitiationsTotal.WithLabelValues(norm(result)).Inc()
}

func IncPaymentPoll(status string) {
	paymentPollsTotal.WithLabelValues(norm(status)).Inc()
}

func IncPaymentOutcome(outcome string) {
	paymentOutcomesTotal.WithLabelValues(norm(outcome)).Inc()
}
