package persona

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/pkg/types"
)

// Style selects how a message is rendered. Advice keeps the original
// casing and adds no flair; everything else goes lowercase.
type Style string

const (
	StyleDefault Style = "default"
	StyleAdvice  Style = "advice"
	StyleHelpful Style = "helpful"
)

// Formatter renders human-readable commentary for logs and
// notifications. It holds no mutable state beyond its random source,
// which is injected so output is deterministic under a seeded source.
// Formatter output never drives control flow.
type Formatter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a formatter around the given random source.
func New(rng *rand.Rand) *Formatter {
	return &Formatter{rng: rng}
}

// Format applies a style to a message.
func (f *Formatter) Format(message string, style Style) string {
	if style == StyleAdvice {
		return message
	}

	message = strings.ToLower(message)

	if style == StyleHelpful && f.chance(0.1) {
		message += " " + f.pick(fourthWallBreaks)
	}

	return message
}

// FormatDecision renders a proposed decision with flair scaled to the
// edge size.
func (f *Formatter) FormatDecision(d *types.Decision, event *types.Event) string {
	team := event.HomeTeam
	side := "home"
	if d.Outcome == types.OutcomeAway {
		team = event.AwayTeam
		side = "away"
	}
	opponent := event.AwayTeam
	if side == "away" {
		opponent = event.HomeTeam
	}

	base := fmt.Sprintf("found %.1f%% edge on %s (%s) vs %s, staking $%.2f",
		d.EdgePct, team, side, opponent, d.Stake)

	var flair []string
	switch {
	case d.EdgePct > 10:
		flair = bigEdgeFlair
	case d.EdgePct > 5:
		flair = solidEdgeFlair
	default:
		flair = smallEdgeFlair
	}

	return f.Format(base+" "+f.pick(flair), StyleDefault)
}

// FormatRejection renders a rejected decision.
func (f *Formatter) FormatRejection(d *types.Decision) string {
	base := fmt.Sprintf("passing on %s: %s.", d.EventID, d.RejectionReason)
	return f.Format(base+" "+f.pick(noBetFlair), StyleDefault)
}

// FormatSettlement renders a settlement result against the new balance.
func (f *Formatter) FormatSettlement(s types.Settlement, balance float64) string {
	var base string
	if s.Won {
		base = fmt.Sprintf("just collected $%.2f. bankroll up to $%.2f. books in shambles.",
			s.Net(), balance)
	} else {
		base = fmt.Sprintf("took a $%.2f hit. bankroll at $%.2f. temporary setback, we move.",
			-s.Net(), balance)
	}
	return f.Format(base, StyleDefault)
}

// FormatBankroll renders the current bankroll health.
func (f *Formatter) FormatBankroll(balance float64) string {
	var base string
	switch {
	case balance > 1000:
		base = fmt.Sprintf("bankroll looking healthy at $%.2f. ready to make books cry.", balance)
	case balance > 100:
		base = fmt.Sprintf("bankroll sitting at $%.2f. decent ammo for today's battles.", balance)
	default:
		base = fmt.Sprintf("bankroll down to $%.2f. time to reload or play it tight.", balance)
	}
	return f.Format(base, StyleDefault)
}

// FormatDailySummary renders the day's aggregate.
func (f *Formatter) FormatDailySummary(daily ledger.DailyAggregate) string {
	base := fmt.Sprintf("%s recap: %d bets, $%.2f staked, net $%+.2f.",
		daily.Date, daily.BetsPlaced, daily.TotalStaked, daily.NetProfit())

	if daily.BetsPlaced == 0 {
		return f.Format("no actionable edges today. sometimes the best bet is no bet.", StyleDefault)
	}
	if daily.NetProfit() >= 0 {
		return f.Format(base+" "+f.pick(winningDayFlair), StyleDefault)
	}
	return f.Format(base+" "+f.pick(losingDayFlair), StyleDefault)
}

// FormatCycleSummary renders how many decisions a cycle produced.
func (f *Formatter) FormatCycleSummary(approved int) string {
	switch approved {
	case 0:
		return f.Format("no actionable edges this cycle. sometimes the best bet is no bet.", StyleDefault)
	case 1:
		return f.Format("found 1 actionable edge this cycle. quality over quantity.", StyleDefault)
	default:
		return f.Format(fmt.Sprintf("found %d actionable edges this cycle. time to feast.", approved), StyleDefault)
	}
}

// FormatError renders an error notice. The underlying detail stays in
// the structured logs, not the public-facing message.
func (f *Formatter) FormatError(error) string {
	return f.Format("hit a small glitch in the matrix. "+f.pick(errorFlair), StyleDefault)
}

func (f *Formatter) pick(options []string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return options[f.rng.Intn(len(options))]
}

func (f *Formatter) chance(p float64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < p
}

//nolint:gochecknoglobals
var (
	bigEdgeFlair = []string{
		"books literally giving away money on this one.",
		"this is why offshore limits exist.",
		"pure gift from the betting gods.",
		"edge so big you can see it from space.",
	}

	solidEdgeFlair = []string{
		"solid value while squares chase favorites.",
		"the line hasn't caught up yet. we have.",
		"quietly printing while the public sleeps.",
	}

	smallEdgeFlair = []string{
		"small edge, disciplined stake. compounding does the rest.",
		"grinding out the thin ones. that's the job.",
	}

	noBetFlair = []string{
		"discipline is a position too.",
		"the books don't get a donation today.",
	}

	winningDayFlair = []string{
		"books hoping i take a day off. not happening.",
		"what's better than making books cry? doing it every single day.",
	}

	losingDayFlair = []string{
		"variance is rent. we still own the building.",
		"short-term pain, long-term edge.",
	}

	errorFlair = []string{
		"rebooting the money printer.",
		"even elite bettors hit turbulence.",
	}

	fourthWallBreaks = []string{
		"apparently being an ai betting agent doesn't stop me from dropping knowledge.",
		"being an ai betting agent has its perks. infinite memory for odds.",
	}
)
