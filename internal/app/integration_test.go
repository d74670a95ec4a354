package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edgeline/edgeline/internal/controller"
	"github.com/edgeline/edgeline/pkg/config"
	"github.com/edgeline/edgeline/pkg/types"
)

// newPaperConfig builds a config pointing the research collaborator
// at local test servers, running the paper venue.
func newPaperConfig(modelURL, oddsURL string) *config.Config {
	return &config.Config{
		LogLevel: "info",
		HTTPPort: "0",

		LoopInterval:     time.Second,
		ResearchInterval: time.Hour,

		ModelAPIURL:     modelURL,
		OddsAPIURL:      oddsURL,
		ResearchTimeout: 5 * time.Second,
		OddsBookIDs:     "pinnacle",

		Bankroll:         1000,
		MinBet:           10,
		MaxBet:           100,
		MinEVThreshold:   2.0,
		MaxKellyFraction: 0.25,

		DailyBetLimit:   5,
		DailyLossLimit:  100,
		PortfolioCapPct: 0.10,
		BankrollFloor:   100,

		BreakerCheckInterval:   time.Minute,
		BreakerHysteresisRatio: 1.5,

		ExecutionMode:    "paper",
		ExecutionTimeout: 5 * time.Second,

		MemoryMode:      "memory",
		ContextCacheTTL: time.Minute,
	}
}

// TestIntegration_PaperCycle walks one full cycle against stub
// research APIs: a favorable home quote gets proposed, approved,
// paper-submitted, and settled as a win at the next idle pass.
func TestIntegration_PaperCycle(t *testing.T) {
	modelSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/beliefs":
			w.Write([]byte(`[{
				"event_id": "evt-lal-bos",
				"home_team": "Lakers",
				"away_team": "Celtics",
				"start_time": "2026-08-28T19:00:00Z",
				"probabilities": {"home": 0.58, "away": 0.42},
				"confidence": 0.8,
				"generated_at": "2026-08-28T12:00:00Z"
			}]`))
		case "/v1/results":
			w.Write([]byte(`[{"event_id": "evt-lal-bos", "final": true, "winning_outcome": "home"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer modelSrv.Close()

	oddsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[
			{"event_id": "evt-lal-bos", "outcome": "home", "book_id": "pinnacle", "price": -104},
			{"event_id": "evt-lal-bos", "outcome": "away", "book_id": "pinnacle", "price": 110}
		]`))
	}))
	defer oddsSrv.Close()

	cfg := newPaperConfig(modelSrv.URL, oddsSrv.URL)
	require.NoError(t, cfg.Validate())

	a, err := New(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	require.NoError(t, a.controller.Start(a.ctx))
	defer func() {
		a.cancel()
		a.controller.Stop()
	}()

	// The decision reaches the paper venue within the first cycle
	require.Eventually(t, func() bool {
		for _, d := range a.controller.RecentDecisions() {
			if d.Status == types.StatusSubmitted || d.Status == types.StatusSettled {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	decisions := a.controller.RecentDecisions()
	require.Len(t, decisions, 1)
	d := decisions[0]
	assert.Equal(t, "evt-lal-bos", d.EventID)
	assert.Equal(t, "home", d.Outcome)
	assert.Equal(t, "pinnacle", d.SourceBook)
	assert.InDelta(t, 7.02, d.EdgePct, 0.05)
	assert.Greater(t, d.Stake, 0.0)
	assert.LessOrEqual(t, d.Stake, 100.0)

	// The first idle pass reconciles the final result as a win
	require.Eventually(t, func() bool {
		return a.ledger.Balance() > 1000
	}, 10*time.Second, 50*time.Millisecond)

	snap := a.ledger.Snapshot()
	assert.Equal(t, 1, snap.Daily.BetsPlaced)
	assert.Greater(t, snap.Daily.AmountWon, 0.0)
	assert.Zero(t, snap.Daily.AmountLost)
	assert.Equal(t, controller.StateIdle, a.controller.State())
}

// TestIntegration_ResearchFailureRecovers drives a cycle whose slate
// fetch fails and checks the controller lands back in IDLE instead of
// crashing.
func TestIntegration_ResearchFailureRecovers(t *testing.T) {
	failSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer failSrv.Close()

	cfg := newPaperConfig(failSrv.URL, failSrv.URL)
	a, err := New(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	require.NoError(t, a.controller.Start(a.ctx))
	defer func() {
		a.cancel()
		a.controller.Stop()
	}()

	require.Eventually(t, func() bool {
		status := a.controller.GetStatus()
		return status.State == controller.StateIdle && status.LastError != ""
	}, 5*time.Second, 20*time.Millisecond)

	assert.InDelta(t, 1000.0, a.ledger.Balance(), 1e-9)
}

func TestNew_DryRunForcesPaperMode(t *testing.T) {
	cfg := newPaperConfig("http://unused.invalid", "http://unused.invalid")
	cfg.ExecutionMode = "live"
	cfg.VenuePrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

	a, err := New(cfg, zap.NewNop(), &Options{DryRun: true})
	require.NoError(t, err)
	defer a.cancel()

	assert.Equal(t, "paper", a.executor.Mode())
}
