package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_pipeline_decisions_total",
			Help: "Decisions produced by the pipeline, by status",
		},
		[]string{"status"},
	)

	EvaluationDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgeline_pipeline_evaluation_duration_seconds",
			Help:    "Time spent evaluating a single event",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)
)
