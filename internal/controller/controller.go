// Package controller drives the betting cycle: research the slate,
// reason over every event, risk-validate the batch, execute approved
// stakes, then idle until the next cycle while reconciling outcomes.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/internal/memory"
	"github.com/edgeline/edgeline/internal/persona"
	"github.com/edgeline/edgeline/pkg/types"
)

// CycleState is the controller's current phase. Exactly one value is
// active at a time.
type CycleState string

const (
	StateInitializing   CycleState = "INITIALIZING"
	StateResearching    CycleState = "RESEARCHING"
	StateReasoning      CycleState = "REASONING"
	StateRiskAssessment CycleState = "RISK_ASSESSMENT"
	StateExecuting      CycleState = "EXECUTING"
	StateIdle           CycleState = "IDLE"
	StateError          CycleState = "ERROR"
)

// Researcher supplies the day's slate with beliefs and quotes.
type Researcher interface {
	Research(ctx context.Context, date string) ([]*types.Event, error)
}

// Evaluator turns one event into a decision given the bankroll.
type Evaluator interface {
	Evaluate(event *types.Event, bankroll float64) *types.Decision
}

// Validator risk-checks a batch of decisions against one ledger
// snapshot.
type Validator interface {
	ValidateBatch(decisions []*types.Decision, snap ledger.Snapshot) []*types.Decision
}

// Submitter pushes approved decisions to the venue and reconciles
// settled outcomes.
type Submitter interface {
	Execute(ctx context.Context, decisions []*types.Decision) int
	Reconcile(ctx context.Context) ([]types.Settlement, error)
	PendingCount() int
}

// Config holds controller configuration.
type Config struct {
	// Interval is the research staleness interval: a new cycle starts
	// once this much time has passed since the previous cycle began.
	Interval time.Duration
	// IdleTick bounds how long the controller sleeps between idle
	// reconciliation passes.
	IdleTick time.Duration
	// CallTimeout bounds every external collaborator call.
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// Controller is the cycle state machine. Single-threaded: one state
// handler runs to completion before the next, and the stop signal
// takes effect at state boundaries.
type Controller struct {
	cfg      Config
	research Researcher
	pipeline Evaluator
	risk     Validator
	executor Submitter
	ledger   *ledger.Ledger
	persona  *persona.Formatter
	memory   memory.Store

	// Cycle-loop working state, touched only by the run goroutine.
	events    []*types.Event
	decisions []*types.Decision

	mu            sync.Mutex
	state         CycleState
	lastErr       error
	cycleStart    time.Time
	lastDecisions []types.Decision
	cycles        int

	wg sync.WaitGroup
}

// New creates a controller. The persona formatter and memory store
// are optional; everything else is required.
func New(
	cfg Config,
	research Researcher,
	pipeline Evaluator,
	risk Validator,
	executor Submitter,
	bankroll *ledger.Ledger,
	formatter *persona.Formatter,
	mem memory.Store,
) (*Controller, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	if cfg.IdleTick <= 0 {
		cfg.IdleTick = 15 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if research == nil || pipeline == nil || risk == nil || executor == nil || bankroll == nil {
		return nil, fmt.Errorf("all collaborators are required")
	}

	return &Controller{
		cfg:      cfg,
		research: research,
		pipeline: pipeline,
		risk:     risk,
		executor: executor,
		ledger:   bankroll,
		persona:  formatter,
		memory:   mem,
		state:    StateInitializing,
	}, nil
}

// Start launches the cycle loop. It returns immediately; Stop waits
// for the loop to exit after the context is canceled.
func (c *Controller) Start(ctx context.Context) error {
	c.logger().Info("controller-starting",
		zap.Duration("interval", c.cfg.Interval),
		zap.Duration("idle-tick", c.cfg.IdleTick),
		zap.Float64("opening-balance", c.ledger.Balance()))
	c.say(func(f *persona.Formatter) string { return f.FormatBankroll(c.ledger.Balance()) })

	c.wg.Add(1)
	go c.runLoop(ctx)

	return nil
}

// Stop blocks until the cycle loop has exited.
func (c *Controller) Stop() {
	c.wg.Wait()
	c.logger().Info("controller-stopped")
}

// State returns the current cycle state.
func (c *Controller) State() CycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RecentDecisions returns copies of the decisions from the most recent
// reasoning pass. Copies keep callers off the structs the cycle loop
// still mutates.
func (c *Controller) RecentDecisions() []types.Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Decision, len(c.lastDecisions))
	copy(out, c.lastDecisions)
	return out
}

// publishDecisions snapshots the working decisions for readers. Called
// after every phase that mutates them.
func (c *Controller) publishDecisions() {
	snapshot := make([]types.Decision, 0, len(c.decisions))
	for _, d := range c.decisions {
		snapshot = append(snapshot, *d)
	}

	c.mu.Lock()
	c.lastDecisions = snapshot
	c.mu.Unlock()
}

// Status is a point-in-time controller summary for the ops surface.
type Status struct {
	State              CycleState `json:"state"`
	Cycles             int        `json:"cycles"`
	LastError          string     `json:"last_error,omitempty"`
	CycleStartedAt     time.Time  `json:"cycle_started_at"`
	PendingSubmissions int        `json:"pending_submissions"`
	Balance            float64    `json:"balance"`
}

// GetStatus returns the controller status.
func (c *Controller) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		State:              c.state,
		Cycles:             c.cycles,
		CycleStartedAt:     c.cycleStart,
		PendingSubmissions: c.executor.PendingCount(),
		Balance:            c.ledger.Balance(),
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

func (c *Controller) runLoop(ctx context.Context) {
	defer c.wg.Done()

	for {
		// Stop takes effect at state boundaries, never mid-handler
		if ctx.Err() != nil {
			c.logger().Info("controller-stopping", zap.String("state", string(c.State())))
			return
		}

		next, pause := c.step(ctx, c.State())
		c.transition(next)

		if pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(pause):
			}
		}
	}
}

// step runs one state handler and returns the next state plus how
// long to pause before it.
func (c *Controller) step(ctx context.Context, state CycleState) (CycleState, time.Duration) {
	switch state {
	case StateInitializing:
		return StateResearching, 0
	case StateResearching:
		return c.stepResearch(ctx), 0
	case StateReasoning:
		return c.stepReason(), 0
	case StateRiskAssessment:
		return c.stepRiskAssessment(), 0
	case StateExecuting:
		return c.stepExecute(ctx), 0
	case StateIdle:
		return c.stepIdle(ctx)
	case StateError:
		// Immediate recovery, no backoff: the next idle pass retries
		// naturally
		return StateIdle, 0
	default:
		c.fail("state", fmt.Errorf("unknown state %q", state))
		return StateError, 0
	}
}

func (c *Controller) stepResearch(ctx context.Context) CycleState {
	c.mu.Lock()
	c.cycleStart = time.Now()
	c.cycles++
	c.mu.Unlock()
	CyclesTotal.Inc()
	c.loadCycleContext()

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	events, err := c.research.Research(callCtx, time.Now().Format("2006-01-02"))
	if err != nil {
		c.fail("research", err)
		return StateError
	}
	c.events = events

	c.logger().Info("slate-researched", zap.Int("events", len(events)))
	return StateReasoning
}

func (c *Controller) stepReason() CycleState {
	bankroll := c.ledger.Balance()
	decisions := make([]*types.Decision, 0, len(c.events))
	proposed := 0

	for _, e := range c.events {
		d := c.pipeline.Evaluate(e, bankroll)
		decisions = append(decisions, d)
		if d.Status == types.StatusProposed {
			proposed++
		}
	}

	c.decisions = decisions
	c.publishDecisions()

	c.logger().Info("slate-reasoned",
		zap.Int("events", len(c.events)),
		zap.Int("proposed", proposed),
		zap.Float64("bankroll", bankroll))

	if proposed == 0 {
		return StateIdle
	}
	return StateRiskAssessment
}

func (c *Controller) stepRiskAssessment() CycleState {
	// One snapshot for the whole batch keeps validation deterministic
	snap := c.ledger.Snapshot()
	validated := c.risk.ValidateBatch(c.decisions, snap)

	eventsByID := make(map[string]*types.Event, len(c.events))
	for _, e := range c.events {
		eventsByID[e.ID] = e
	}

	approved := 0
	for _, d := range validated {
		switch {
		case d.Status == types.StatusApproved:
			approved++
			if e := eventsByID[d.EventID]; e != nil {
				c.say(func(f *persona.Formatter) string { return f.FormatDecision(d, e) })
			}
		case d.Rejected():
			c.say(func(f *persona.Formatter) string { return f.FormatRejection(d) })
		}
		c.recordDecision(d)
	}

	c.decisions = validated
	c.publishDecisions()

	c.logger().Info("batch-validated",
		zap.Int("decisions", len(validated)),
		zap.Int("approved", approved),
		zap.Float64("balance", snap.Balance))
	c.say(func(f *persona.Formatter) string { return f.FormatCycleSummary(approved) })

	if approved == 0 {
		return StateIdle
	}
	return StateExecuting
}

func (c *Controller) stepExecute(ctx context.Context) CycleState {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	submitted := c.executor.Execute(callCtx, c.decisions)
	c.publishDecisions()

	c.logger().Info("batch-executed",
		zap.Int("submitted", submitted),
		zap.Int("pending", c.executor.PendingCount()))

	// Success and partial failure both land in IDLE: unsubmitted
	// decisions are re-evaluated fresh next cycle
	return StateIdle
}

func (c *Controller) stepIdle(ctx context.Context) (CycleState, time.Duration) {
	c.reconcile(ctx)

	c.mu.Lock()
	elapsed := time.Since(c.cycleStart)
	c.mu.Unlock()

	// The 1s floor applies even when the interval has already
	// elapsed, so a cycle that fails instantly cannot busy-loop
	remaining := c.cfg.Interval - elapsed
	if remaining <= 0 {
		c.saveCycleContext()
		c.say(func(f *persona.Formatter) string { return f.FormatDailySummary(c.ledger.Snapshot().Daily) })
		return StateResearching, time.Second
	}

	pause := remaining
	if pause > c.cfg.IdleTick {
		pause = c.cfg.IdleTick
	}
	if pause < time.Second {
		pause = time.Second
	}
	return StateIdle, pause
}

// reconcile applies settled outcomes to the ledger. Settlements only
// ever land here, between cycles, never while a batch is being
// validated.
func (c *Controller) reconcile(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	settlements, err := c.executor.Reconcile(callCtx)
	if err != nil {
		c.logger().Warn("reconcile-failed", zap.Error(err))
		return
	}

	for _, s := range settlements {
		c.ledger.ApplySettlement(s)
		SettlementsAppliedTotal.Inc()
		c.markSettled(s.DecisionID)
		c.recordSettlement(s)
		c.say(func(f *persona.Formatter) string { return f.FormatSettlement(s, c.ledger.Balance()) })
	}

	if len(settlements) > 0 {
		c.logger().Info("settlements-applied",
			zap.Int("count", len(settlements)),
			zap.Float64("balance", c.ledger.Balance()))
	}
}

// markSettled flips the matching recent decision to settled. The
// reconciler reports outcomes by decision ID and never touches the
// decision structs itself.
func (c *Controller) markSettled(decisionID string) {
	for _, d := range c.decisions {
		if d.ID == decisionID {
			d.Status = types.StatusSettled
			c.publishDecisions()
			return
		}
	}
}

func (c *Controller) fail(phase string, err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	CycleErrorsTotal.WithLabelValues(phase).Inc()
	c.logger().Error("cycle-error",
		zap.String("phase", phase),
		zap.Error(err))
	c.say(func(f *persona.Formatter) string { return f.FormatError(err) })
}

// transition moves to the next state, logging only actual changes.
func (c *Controller) transition(next CycleState) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()

	if prev == next {
		return
	}

	StateTransitionsTotal.WithLabelValues(string(prev), string(next)).Inc()
	c.logger().Info("state-transition",
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
}

// contextKeyLastCycle is the memory context key holding the previous
// cycle's recap.
const contextKeyLastCycle = "last-cycle"

// loadCycleContext reads the previous cycle's recap from memory so
// every cycle starts with continuity in the logs. Read-through cached,
// so this stays off the database between writes.
func (c *Controller) loadCycleContext() {
	if c.memory == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout)
	defer cancel()

	recap, err := c.memory.GetContext(ctx, contextKeyLastCycle)
	if err != nil {
		c.logger().Warn("memory-context-failed", zap.Error(err))
		return
	}
	if recap != "" {
		c.logger().Info("cycle-context", zap.String("previous", recap))
	}
}

// saveCycleContext persists a one-line recap at the cycle boundary for
// the next cycle to read back.
func (c *Controller) saveCycleContext() {
	if c.memory == nil {
		return
	}

	snap := c.ledger.Snapshot()
	c.mu.Lock()
	cycles := c.cycles
	c.mu.Unlock()

	recap := fmt.Sprintf("cycle %d closed: balance $%.2f, %d bets today, net $%+.2f",
		cycles, snap.Balance, snap.Daily.BetsPlaced, snap.Daily.NetProfit())

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout)
	defer cancel()

	if err := c.memory.SetContext(ctx, contextKeyLastCycle, recap); err != nil {
		c.logger().Warn("memory-context-failed", zap.Error(err))
	}
}

// recordDecision appends the validated decision to the memory log.
// Memory failures never block the cycle.
func (c *Controller) recordDecision(d *types.Decision) {
	if c.memory == nil {
		return
	}

	content := d.String()
	if d.Rejected() {
		content += " reason=" + d.RejectionReason
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout)
	defer cancel()

	entry := &memory.Entry{Category: memory.CategoryDecision, Content: content}
	if err := c.memory.Add(ctx, entry); err != nil {
		c.logger().Warn("memory-add-failed", zap.Error(err))
	}
}

func (c *Controller) recordSettlement(s types.Settlement) {
	if c.memory == nil {
		return
	}

	content := fmt.Sprintf("settlement event=%s outcome=%s stake=$%.2f payout=$%.2f won=%t",
		s.EventID, s.Outcome, s.Stake, s.Payout, s.Won)

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.CallTimeout)
	defer cancel()

	entry := &memory.Entry{Category: memory.CategoryOutcome, Content: content}
	if err := c.memory.Add(ctx, entry); err != nil {
		c.logger().Warn("memory-add-failed", zap.Error(err))
	}
}

func (c *Controller) say(format func(*persona.Formatter) string) {
	if c.persona == nil {
		return
	}
	c.logger().Info("persona", zap.String("line", format(c.persona)))
}

func (c *Controller) logger() *zap.Logger {
	return c.cfg.Logger
}
