package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/edgeline/edgeline/internal/circuitbreaker"
	"github.com/edgeline/edgeline/internal/controller"
	"github.com/edgeline/edgeline/internal/execution"
	"github.com/edgeline/edgeline/internal/ledger"
	"github.com/edgeline/edgeline/internal/memory"
	"github.com/edgeline/edgeline/internal/persona"
	"github.com/edgeline/edgeline/internal/pipeline"
	"github.com/edgeline/edgeline/internal/pricing"
	"github.com/edgeline/edgeline/internal/research"
	"github.com/edgeline/edgeline/internal/risk"
	"github.com/edgeline/edgeline/internal/sizing"
	"github.com/edgeline/edgeline/pkg/cache"
	"github.com/edgeline/edgeline/pkg/config"
	"github.com/edgeline/edgeline/pkg/healthprobe"
	"github.com/edgeline/edgeline/pkg/httpserver"
	"github.com/edgeline/edgeline/pkg/wallet"
	"github.com/edgeline/edgeline/pkg/websocket"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.DryRun {
		cfg.ExecutionMode = "paper"
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	contextCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	memoryStore, err := setupMemory(cfg, logger, contextCache)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup memory: %w", err)
	}

	if pinger, ok := memoryStore.(interface{ Ping(context.Context) error }); ok {
		healthChecker.AddCheck("memory-store", func() error {
			return pinger.Ping(context.Background())
		})
	}

	bankroll := ledger.New(cfg.Bankroll, logger)

	breaker, err := setupBreaker(cfg, logger, bankroll)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	researchService := setupResearch(cfg, logger)

	executor, walletTracker, err := setupExecution(cfg, logger, researchService, bankroll, breaker)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup execution: %w", err)
	}

	ctrl, err := setupController(cfg, logger, researchService, executor, bankroll, breaker, memoryStore)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup controller: %w", err)
	}

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Controller:    ctrl,
		Ledger:        bankroll,
		Breaker:       breaker,
		Memory:        memoryStore,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		research:      researchService,
		executor:      executor,
		controller:    ctrl,
		ledger:        bankroll,
		breaker:       breaker,
		memory:        memoryStore,
		walletTracker: walletTracker,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	contextCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{Logger: logger})
	if err != nil {
		return nil, err
	}
	return contextCache, nil
}

func setupMemory(cfg *config.Config, logger *zap.Logger, contextCache cache.Cache) (memory.Store, error) {
	var store memory.Store
	if cfg.MemoryMode == "postgres" {
		pgStore, err := memory.NewPostgresStore(&memory.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		store = pgStore
	} else {
		store = memory.NewInMemoryStore(logger)
	}

	return memory.NewCachedStore(store, contextCache, cfg.ContextCacheTTL, logger), nil
}

// setupBreaker wires the breaker to the ledger: the in-process
// bankroll is what risk validation reads, so it is what the breaker
// must watch.
func setupBreaker(cfg *config.Config, logger *zap.Logger, bankroll *ledger.Ledger) (*circuitbreaker.BankrollCircuitBreaker, error) {
	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.BreakerCheckInterval,
		StakeMultiplier: 2.0,
		Floor:           cfg.BankrollFloor,
		HysteresisRatio: cfg.BreakerHysteresisRatio,
		Source:          bankroll,
		Logger:          logger,
	})
}

func setupResearch(cfg *config.Config, logger *zap.Logger) *research.Service {
	client := research.NewClient(research.Config{
		ModelAPIURL: cfg.ModelAPIURL,
		OddsAPIURL:  cfg.OddsAPIURL,
		OddsAPIKey:  cfg.OddsAPIKey,
		Timeout:     cfg.ResearchTimeout,
		Books:       strings.Split(cfg.OddsBookIDs, ","),
		Logger:      logger,
	})

	var stream *research.Stream
	if cfg.OddsStreamURL != "" {
		feed := websocket.New(websocket.Config{
			URL:                   cfg.OddsStreamURL,
			DialTimeout:           cfg.WSDialTimeout,
			PongTimeout:           cfg.WSPongTimeout,
			PingInterval:          cfg.WSPingInterval,
			ReconnectInitialDelay: cfg.WSReconnectInitialDelay,
			ReconnectMaxDelay:     cfg.WSReconnectMaxDelay,
			ReconnectBackoffMult:  cfg.WSReconnectBackoffMult,
			MessageBufferSize:     cfg.WSMessageBufferSize,
			Logger:                logger,
		})
		stream = research.NewStream(feed, logger)
	}

	return research.NewService(client, stream, logger)
}

func setupExecution(
	cfg *config.Config,
	logger *zap.Logger,
	results execution.ResultSource,
	bankroll *ledger.Ledger,
	breaker *circuitbreaker.BankrollCircuitBreaker,
) (*execution.Executor, *wallet.Tracker, error) {
	var venue execution.Venue
	var walletTracker *wallet.Tracker

	if cfg.ExecutionMode == "live" {
		liveVenue, err := execution.NewLiveVenue(&execution.LiveVenueConfig{
			APIKey:       cfg.VenueAPIKey,
			Secret:       cfg.VenueSecret,
			Passphrase:   cfg.VenuePassphrase,
			PrivateKey:   cfg.VenuePrivateKey,
			ProxyAddress: cfg.VenueProxyAddress,
			BaseURL:      cfg.VenueAPIURL,
			Resolver:     venueTokenResolver(cfg, logger),
			Logger:       logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create live venue: %w", err)
		}
		venue = liveVenue

		walletTracker, err = setupWalletTracker(cfg, logger)
		if err != nil {
			logger.Warn("wallet-tracker-disabled", zap.Error(err))
			walletTracker = nil
		}
	} else {
		venue = execution.NewPaperVenue(logger)
	}

	reconciler := execution.NewReconciler(results, logger)
	executor := execution.NewExecutor(venue, reconciler, logger, bankroll, breaker)

	return executor, walletTracker, nil
}

// venueTokenResolver maps event/outcome pairs to venue token ids via
// the odds API metadata endpoint. Events without a venue market fail
// submission cleanly instead of guessing.
func venueTokenResolver(cfg *config.Config, logger *zap.Logger) execution.TokenResolver {
	client := research.NewTokenClient(cfg.OddsAPIURL, cfg.OddsAPIKey, cfg.ResearchTimeout, logger)
	return client.ResolveToken
}

func setupWalletTracker(cfg *config.Config, logger *zap.Logger) (*wallet.Tracker, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.VenuePrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key")
	}

	return wallet.New(&wallet.Config{
		RPCEndpoint:  cfg.PolygonRPCURL,
		Address:      crypto.PubkeyToAddress(*publicKey),
		PollInterval: time.Minute,
		Logger:       logger,
	})
}

func setupController(
	cfg *config.Config,
	logger *zap.Logger,
	researchService *research.Service,
	executor *execution.Executor,
	bankroll *ledger.Ledger,
	breaker *circuitbreaker.BankrollCircuitBreaker,
	memoryStore memory.Store,
) (*controller.Controller, error) {
	calculator := pricing.New(logger)
	sizer := sizing.New(sizing.Config{
		MaxKellyFraction: cfg.MaxKellyFraction,
		MinBet:           cfg.MinBet,
		MaxBet:           cfg.MaxBet,
		Logger:           logger,
	})
	decisionPipeline := pipeline.New(pipeline.Config{
		MinEVThreshold: cfg.MinEVThreshold,
		Logger:         logger,
	}, calculator, sizer)

	validator := risk.New(risk.Config{
		MinEVThreshold:  cfg.MinEVThreshold,
		MinBet:          cfg.MinBet,
		MaxBet:          cfg.MaxBet,
		DailyBetLimit:   cfg.DailyBetLimit,
		DailyLossLimit:  cfg.DailyLossLimit,
		PortfolioCapPct: cfg.PortfolioCapPct,
		Logger:          logger,
	}, breaker)

	formatter := persona.New(rand.New(rand.NewSource(time.Now().UnixNano())))

	return controller.New(
		controller.Config{
			Interval:    cfg.ResearchInterval,
			IdleTick:    cfg.LoopInterval,
			CallTimeout: cfg.ExecutionTimeout,
			Logger:      logger,
		},
		researchService,
		decisionPipeline,
		validator,
		executor,
		bankroll,
		formatter,
		memoryStore,
	)
}
