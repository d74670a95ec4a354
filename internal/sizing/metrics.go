package sizing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// KellyFractionUsed tracks the effective Kelly fraction after capping.
	KellyFractionUsed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgeline_sizing_kelly_fraction_used",
		Help:    "Effective Kelly fraction after the conservative cap",
		Buckets: []float64{0.01, 0.02, 0.05, 0.1, 0.15, 0.2, 0.25, 0.5},
	})

	// StakeSizedUSD tracks sized stakes before risk validation.
	StakeSizedUSD = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgeline_sizing_stake_usd",
		Help:    "Stake sizes produced by the sizer in USD",
		Buckets: prometheus.ExponentialBuckets(5, 2, 8), // 5, 10, 20, ..., 640
	})
)
