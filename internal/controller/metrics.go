package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_controller_cycles_total",
			Help: "Research cycles started",
		},
	)

	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_controller_state_transitions_total",
			Help: "State machine transitions, by from and to state",
		},
		[]string{"from", "to"},
	)

	CycleErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_controller_cycle_errors_total",
			Help: "Cycle phase failures, by phase",
		},
		[]string{"phase"},
	)

	SettlementsAppliedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgeline_controller_settlements_applied_total",
			Help: "Settlements applied to the ledger at idle",
		},
	)
)
