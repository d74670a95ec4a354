package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	ApprovalsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_risk_approvals_total",
			Help: "Decisions approved by the risk validator",
		},
	)

	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_risk_rejections_total",
			Help: "Decisions rejected by the risk validator, by check",
		},
		[]string{"check"},
	)

	StakesClampedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_risk_stakes_clamped_total",
			Help: "Stakes adjusted to fit the per-bet limits",
		},
	)

	BatchesScaledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_risk_batches_scaled_total",
			Help: "Batches scaled down to fit the portfolio cap",
		},
	)
)
