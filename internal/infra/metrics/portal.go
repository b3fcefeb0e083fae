package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		deviceChecksTotal,
		redemptionsTotal,
		routerLoginsTotal,
	)
}

var (
	// outcome: no_device|active|inactive|error
	deviceChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_device_checks_total",
			Help: "Captive portal device activation checks by outcome.",
		},
		[]string{"outcome"},
	)

	// outcome: ok|invalid|rejected|transport|rate_limited
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_redemptions_total",
			Help: "Voucher redemption attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// outcome: dispatched|declined
	routerLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_logins_total",
			Help: "Router login form submissions by outcome.",
		},
		[]string{"outcome"},
	)
)

func IncDeviceCheck(outcome string) {
	deviceChecksTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncRedemption(outcome string) {
	redemptionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncRouterLogin(outcome string) {
	routerLoginsTotal.WithLabelValues(norm(outcome)).Inc()
}
