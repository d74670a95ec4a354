package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	BreakerHalted = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edgeline_breaker_halted",
			Help: "Whether approvals are halted (1) or flowing (0)",
		},
	)

	BreakerBalance = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edgeline_breaker_balance_usd",
			Help: "Bankroll balance seen at the last check",
		},
	)

	BreakerHaltThreshold = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edgeline_breaker_halt_threshold_usd",
			Help: "Balance below which approvals halt",
		},
	)

	BreakerClearThreshold = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edgeline_breaker_clear_threshold_usd",
			Help: "Balance above which a halted breaker resumes",
		},
	)

	BreakerAvgStakeSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edgeline_breaker_avg_stake_usd",
			Help: "Average stake size in the rolling window",
		},
	)

	BreakerStateChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_breaker_state_changes_total",
			Help: "Halt and resume transitions",
		},
	)

	BreakerTripsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_breaker_trips_total",
			Help: "Manual or invariant-violation trips",
		},
	)

	BreakerCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgeline_breaker_check_duration_seconds",
			Help:    "Time spent in a balance check",
			Buckets: prometheus.DefBuckets,
		},
	)
)
