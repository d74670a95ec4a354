package research

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	EventsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_research_events_fetched_total",
			Help: "Events returned by the model API",
		},
	)

	QuotesFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_research_quotes_fetched_total",
			Help: "Quotes returned by the odds API",
		},
	)

	StreamQuotesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_research_stream_quotes_total",
			Help: "Quotes applied from the streaming feed",
		},
	)

	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_research_fetch_errors_total",
			Help: "Failed research fetches, by source",
		},
		[]string{"source"},
	)

	FetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edgeline_research_fetch_duration_seconds",
			Help:    "Time spent fetching research data, by source",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)
)
