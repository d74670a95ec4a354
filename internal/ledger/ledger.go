package ledger

import (
	"sync"
	"time"

	"github.com/edgeline/edgeline/pkg/types"
	"go.uber.org/zap"
)

// DailyAggregate counts the day's betting activity. It resets on the
// first operation of each new calendar day.
type DailyAggregate struct {
	Date        string  `json:"date"` // YYYY-MM-DD, process-local time
	BetsPlaced  int     `json:"bets_placed"`
	TotalStaked float64 `json:"total_staked"`
	AmountWon   float64 `json:"amount_won"`
	AmountLost  float64 `json:"amount_lost"`
}

// NetProfit returns the day's net P&L.
func (d DailyAggregate) NetProfit() float64 {
	return d.AmountWon - d.AmountLost
}

// Snapshot is an immutable copy of the ledger taken at the start of a
// risk-assessment pass. All checks in one batch read the same
// snapshot, so a settlement landing mid-cycle cannot skew the batch.
type Snapshot struct {
	Balance float64        `json:"balance"`
	Daily   DailyAggregate `json:"daily"`
	TakenAt time.Time      `json:"taken_at"`
}

// Ledger is the authoritative running bankroll. It is mutated only by
// stake commits and settlement events, never by sizing logic, and only
// from within a single controller tick at a time.
type Ledger struct {
	mu      sync.Mutex
	balance float64
	daily   DailyAggregate
	logger  *zap.Logger
	now     func() time.Time // injectable for day-rollover tests
}

// New creates a ledger with the given opening balance.
func New(openingBalance float64, logger *zap.Logger) *Ledger {
	l := &Ledger{
		balance: openingBalance,
		logger:  logger,
		now:     time.Now,
	}
	l.daily.Date = l.today()
	BankrollBalance.Set(openingBalance)
	return l
}

// Snapshot returns an immutable copy for risk validation.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()

	return Snapshot{
		Balance: l.balance,
		Daily:   l.daily,
		TakenAt: l.now(),
	}
}

// Balance returns the current balance.
func (l *Ledger) Balance() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// RecordStake records a submitted stake against the day's aggregates.
// The balance itself moves only on settlement.
func (l *Ledger) RecordStake(stake float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()

	l.daily.BetsPlaced++
	l.daily.TotalStaked += stake

	DailyBetsPlaced.Set(float64(l.daily.BetsPlaced))
	DailyStakedUSD.Set(l.daily.TotalStaked)

	l.logger.Info("stake-recorded",
		zap.Float64("stake", stake),
		zap.Int("daily-bets-placed", l.daily.BetsPlaced),
		zap.Float64("daily-total-staked", l.daily.TotalStaked))
}

// ApplySettlement applies a settled outcome to the balance and daily
// aggregates. This is the only operation that moves the balance.
func (l *Ledger) ApplySettlement(s types.Settlement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()

	net := s.Net()
	l.balance += net

	if s.Won {
		l.daily.AmountWon += net
		SettlementsTotal.WithLabelValues("won").Inc()
	} else {
		l.daily.AmountLost += s.Stake
		SettlementsTotal.WithLabelValues("lost").Inc()
	}

	BankrollBalance.Set(l.balance)
	DailyNetProfitUSD.Set(l.daily.NetProfit())

	l.logger.Info("settlement-applied",
		zap.String("decision-id", s.DecisionID),
		zap.String("event-id", s.EventID),
		zap.Bool("won", s.Won),
		zap.Float64("net", net),
		zap.Float64("balance", l.balance))
}

// rollDayLocked resets daily aggregates when the calendar day has
// changed since the last operation. Caller must hold l.mu.
func (l *Ledger) rollDayLocked() {
	today := l.today()
	if l.daily.Date == today {
		return
	}

	l.logger.Info("daily-aggregates-reset",
		zap.String("previous-date", l.daily.Date),
		zap.String("date", today),
		zap.Int("previous-bets-placed", l.daily.BetsPlaced),
		zap.Float64("previous-net-profit", l.daily.NetProfit()))

	l.daily = DailyAggregate{Date: today}
	DailyBetsPlaced.Set(0)
	DailyStakedUSD.Set(0)
	DailyNetProfitUSD.Set(0)
}

func (l *Ledger) today() string {
	return l.now().Format("2006-01-02")
}
