package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(auditPoolConns) }

// auditPoolConns tracks the activation log's pgx pool.
var auditPoolConns = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "portal_audit_db_connections",
		Help: "Connections in the activation log pool by state.",
	},
	[]string{"state"}, // total | idle | acquired
)

func SetDBPoolStats(total, idle, acquired int32) {
	auditPoolConns.WithLabelValues("total").Set(float64(total))
	auditPoolConns.WithLabelValues("idle").Set(float64(idle))
	auditPoolConns.WithLabelValues("acquired").Set(float64(acquired))
}
