package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// BankrollBalance tracks the current bankroll balance.
	BankrollBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgeline_ledger_bankroll_usd",
		Help: "Current bankroll balance in USD",
	})

	// DailyBetsPlaced tracks today's bet count.
	DailyBetsPlaced = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgeline_ledger_daily_bets_placed",
		Help: "Number of bets placed today",
	})

	// DailyStakedUSD tracks today's total staked amount.
	DailyStakedUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgeline_ledger_daily_staked_usd",
		Help: "Total amount staked today in USD",
	})

	// DailyNetProfitUSD tracks today's net P&L.
	DailyNetProfitUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgeline_ledger_daily_net_profit_usd",
		Help: "Net profit for the current day in USD",
	})

	// SettlementsTotal tracks settlements by result.
	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgeline_ledger_settlements_total",
			Help: "Total number of settlements applied to the ledger",
		},
		[]string{"result"},
	)
)
