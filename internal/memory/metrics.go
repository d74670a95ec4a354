package memory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	EntriesAddedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_memory_entries_added_total",
			Help: "Memory entries written, by category",
		},
		[]string{"category"},
	)

	EntriesErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_memory_entry_errors_total",
			Help: "Failed memory entry writes",
		},
	)

	SearchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_memory_searches_total",
			Help: "Memory search queries served",
		},
	)
)
