package pricing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// EdgesComputedTotal tracks per-outcome edge computations.
	EdgesComputedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgeline_pricing_edges_computed_total",
		Help: "Total number of per-outcome edges computed",
	})

	// FallbackEdgesTotal tracks edges computed without any market quote.
	FallbackEdgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edgeline_pricing_fallback_edges_total",
		Help: "Total number of edges computed against the fallback implied probability",
	})

	// EdgeDistribution tracks the distribution of computed edges.
	EdgeDistribution = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgeline_pricing_edge",
		Help:    "Distribution of computed edges (model minus market probability)",
		Buckets: []float64{-0.2, -0.1, -0.05, -0.02, 0, 0.02, 0.05, 0.1, 0.2},
	})

	// EdgeComputationSeconds tracks edge computation latency per event.
	EdgeComputationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edgeline_pricing_computation_seconds",
		Help:    "Duration of the edge computation for one event",
		Buckets: prometheus.DefBuckets,
	})
)
