package idempotency

import "github.com/prometheus/client_golang/prometheus"

var (
	// reservations counts CheckAndReserve calls by outcome (fresh|duplicate).
	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_reservations_total",
			Help: "Idempotency-Key reservations by outcome.",
		},
		[]string{"outcome"},
	)

	// sweepEvictions counts reservations removed by Sweep.
	sweepEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "idempotency_sweep_evictions_total",
			Help: "Expired idempotency reservations evicted by the sweeper.",
		},
	)

	// entriesGauge tracks the size of the most recently touched guard.
	entriesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "idempotency_entries",
			Help: "Idempotency reservations currently held in memory.",
		},
	)
)

func init() {
	prometheus.MustRegister(reservations, sweepEvictions, entriesGauge)
}
