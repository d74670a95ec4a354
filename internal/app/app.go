// Package app wires the betting agent together: research, pipeline,
// risk, execution, ledger, breaker, memory, persona, and the ops HTTP
// surface.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/edgeline/edgeline/internal/circuitbreaker"
	"github.com/edgeline/edgeline/internal/controller"
	"github.com/edgeline/edgeline/internal/execution"
	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/internal/memory"
	"github.com/edgeline/edgeline/internal/research"
	"github.com/edgeline/edgeline/pkg/config"
	"github.com/edgeline/edgeline/pkg/healthprobe"
	"github.com/edgeline/edgeline/pkg/httpserver"
	"github.com/edgeline/edgeline/pkg/wallet"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	research      *research.Service
	executor      *execution.Executor
	controller    *controller.Controller
	ledger        *ledger.Ledger
	breaker       *circuitbreaker.BankrollCircuitBreaker
	memory        memory.Store
	walletTracker *wallet.Tracker // live mode only
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	DryRun bool // force paper execution regardless of EXECUTION_MODE
}
