// Package metrics exposes Prometheus collectors for order flow and account
// state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for OrdersSubmitted.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected" // refused by the broker
	OutcomeBlocked  = "blocked"  // stopped by a risk limit
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "degiro_orders_submitted_total",
			Help: "Total number of orders submitted (by broker and outcome).",
		},
		[]string{"broker", "outcome"},
	)

	OrderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "degiro_order_submit_seconds",
			Help:    "Time spent in the broker submit call.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"broker"},
	)

	PositionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "degiro_positions_open",
			Help: "Current number of open positions per broker.",
		},
		[]string{"broker"},
	)

	EquityGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "degiro_equity",
			Help: "Last observed account equity per broker.",
		},
		[]string{"broker"},
	)
)

func init() {
	prometheus.MustRegister(OrdersSubmitted, OrderLatency, PositionsOpen, EquityGauge)
}
