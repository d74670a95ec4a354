package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_execution_submissions_total",
			Help: "Venue submissions, by venue mode and result",
		},
		[]string{"mode", "result"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_execution_settlements_total",
			Help: "Reconciled settlements, by result",
		},
		[]string{"result"},
	)

	PendingSubmissions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edgeline_execution_pending_submissions",
			Help: "Submitted decisions awaiting a final game result",
		},
	)

	SubmitDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edgeline_execution_submit_duration_seconds",
			Help:    "Time spent submitting a single decision, by venue mode",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
)
