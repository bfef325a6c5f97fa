// Package metrics registers the Prometheus series the desk updates during
// operation:
//
//	desk_orders_total{mode,side}          - orders accepted by the broker
//	desk_rejections_total{mode,reason}    - broker rejections by classified reason
//	desk_order_retries_total{method}      - retry attempts by method
//	desk_position_lookups_degraded_total  - position reads that degraded to flat
//
// Served at /metrics in the Prometheus text exposition format.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_orders_total",
			Help: "Orders accepted by the broker",
		},
		[]string{"mode", "side"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_rejections_total",
			Help: "Broker rejections by classified reason",
		},
		[]string{"mode", "reason"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "desk_order_retries_total",
			Help: "Order submission retries by method",
		},
		[]string{"method"},
	)

	degradedLookups = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "desk_position_lookups_degraded_total",
			Help: "Position reads that failed and degraded to flat",
		},
	)
)

func init() {
	prometheus.MustRegister(ordersTotal, rejectionsTotal, retriesTotal, degradedLookups)
}

func OrderAccepted(mode, side string)   { ordersTotal.WithLabelValues(mode, side).Inc() }
func OrderRejected(mode, reason string) { rejectionsTotal.WithLabelValues(mode, reason).Inc() }
func RetryAttempted(method string)      { retriesTotal.WithLabelValues(method).Inc() }
func PositionLookupDegraded()           { degradedLookups.Inc() }
