package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel  string
	LogFormat string
	HTTPPort  string

	// Controller
	LoopInterval     time.Duration // sleep target between ticks
	ResearchInterval time.Duration // staleness window before IDLE -> RESEARCHING

	// Research collaborator
	ModelAPIURL     string
	OddsAPIURL      string
	OddsAPIKey      string
	ResearchTimeout time.Duration
	OddsStreamURL   string // optional websocket quote feed, empty disables
	OddsBookIDs     string // comma-separated book ids to pull quotes from

	// WebSocket quote stream
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// Betting parameters
	Bankroll         float64
	MinBet           float64
	MaxBet           float64
	MinEVThreshold   float64 // percentage points
	MaxKellyFraction float64

	// Risk limits
	DailyBetLimit   int
	DailyLossLimit  float64
	PortfolioCapPct float64
	BankrollFloor   float64 // circuit breaker trips below this balance

	// Circuit breaker
	BreakerCheckInterval   time.Duration
	BreakerHysteresisRatio float64

	// Execution collaborator
	ExecutionMode     string // "paper" or "live"
	ExecutionTimeout  time.Duration
	VenueAPIURL       string
	VenueAPIKey       string
	VenueSecret       string
	VenuePassphrase   string
	VenuePrivateKey   string
	VenueProxyAddress string
	PolygonRPCURL     string

	// Memory collaborator
	MemoryMode      string // "postgres" or "memory"
	PostgresHost    string
	PostgresPort    string
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
	PostgresSSL     string
	ContextCacheTTL time.Duration
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),
		HTTPPort:  getEnvOrDefault("HTTP_PORT", "8080"),

		// Controller defaults
		LoopInterval:     getDurationOrDefault("LOOP_INTERVAL", 60*time.Second),
		ResearchInterval: getDurationOrDefault("RESEARCH_INTERVAL", 1*time.Hour),

		// Research defaults
		ModelAPIURL:     getEnvOrDefault("MODEL_API_URL", "https://mm-api.sportstensor.com"),
		OddsAPIURL:      getEnvOrDefault("ODDS_API_URL", "https://api.pro.betstamp.com/api"),
		OddsAPIKey:      os.Getenv("ODDS_API_KEY"),
		ResearchTimeout: getDurationOrDefault("RESEARCH_TIMEOUT", 15*time.Second),
		OddsStreamURL:   os.Getenv("ODDS_STREAM_URL"),
		OddsBookIDs:     getEnvOrDefault("ODDS_BOOK_IDS", "pinnacle,consensus"),

		// WebSocket defaults
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 60*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 30*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 1000),

		// Betting defaults
		Bankroll:         getFloat64OrDefault("BANKROLL", 1000.0),
		MinBet:           getFloat64OrDefault("MIN_BET", 10.0),
		MaxBet:           getFloat64OrDefault("MAX_BET", 100.0),
		MinEVThreshold:   getFloat64OrDefault("MIN_EV_THRESHOLD", 2.0),
		MaxKellyFraction: getFloat64OrDefault("MAX_KELLY_FRACTION", 0.25),

		// Risk defaults
		DailyBetLimit:   getIntOrDefault("DAILY_BET_LIMIT", 5),
		DailyLossLimit:  getFloat64OrDefault("DAILY_LOSS_LIMIT", 100.0),
		PortfolioCapPct: getFloat64OrDefault("PORTFOLIO_CAP_PCT", 0.10),
		BankrollFloor:   getFloat64OrDefault("BANKROLL_FLOOR", 100.0),

		// Circuit breaker defaults
		BreakerCheckInterval:   getDurationOrDefault("BREAKER_CHECK_INTERVAL", 30*time.Second),
		BreakerHysteresisRatio: getFloat64OrDefault("BREAKER_HYSTERESIS_RATIO", 1.5),

		// Execution defaults
		ExecutionMode:     getEnvOrDefault("EXECUTION_MODE", "paper"),
		ExecutionTimeout:  getDurationOrDefault("EXECUTION_TIMEOUT", 30*time.Second),
		VenueAPIURL:       getEnvOrDefault("VENUE_API_URL", "https://clob.polymarket.com"),
		VenueAPIKey:       os.Getenv("VENUE_API_KEY"),
		VenueSecret:       os.Getenv("VENUE_SECRET"),
		VenuePassphrase:   os.Getenv("VENUE_PASSPHRASE"),
		VenuePrivateKey:   os.Getenv("VENUE_PRIVATE_KEY"),
		VenueProxyAddress: os.Getenv("VENUE_PROXY_ADDRESS"),
		PolygonRPCURL:     getEnvOrDefault("POLYGON_RPC_URL", "https://polygon-rpc.com"),

		// Memory defaults
		MemoryMode:      getEnvOrDefault("MEMORY_MODE", "memory"),
		PostgresHost:    getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:    getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:    getEnvOrDefault("POSTGRES_USER", "edgeline"),
		PostgresPass:    getEnvOrDefault("POSTGRES_PASSWORD", "edgeline123"),
		PostgresDB:      getEnvOrDefault("POSTGRES_DB", "edgeline"),
		PostgresSSL:     getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		ContextCacheTTL: getDurationOrDefault("CONTEXT_CACHE_TTL", 5*time.Minute),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid. Unknown or
// out-of-range values are rejected here, once, rather than defaulted
// silently inside business logic.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.LoopInterval <= 0 {
		return fmt.Errorf("LOOP_INTERVAL must be positive, got %s", c.LoopInterval)
	}

	if c.Bankroll <= 0 {
		return fmt.Errorf("BANKROLL must be positive, got %f", c.Bankroll)
	}

	if c.MinBet < 0 || c.MaxBet < c.MinBet {
		return fmt.Errorf("bet bounds invalid: MIN_BET=%f MAX_BET=%f", c.MinBet, c.MaxBet)
	}

	if c.MaxKellyFraction <= 0 || c.MaxKellyFraction > 1.0 {
		return fmt.Errorf("MAX_KELLY_FRACTION must be in (0, 1], got %f", c.MaxKellyFraction)
	}

	if c.PortfolioCapPct <= 0 || c.PortfolioCapPct > 1.0 {
		return fmt.Errorf("PORTFOLIO_CAP_PCT must be in (0, 1], got %f", c.PortfolioCapPct)
	}

	if c.DailyBetLimit <= 0 {
		return fmt.Errorf("DAILY_BET_LIMIT must be positive, got %d", c.DailyBetLimit)
	}

	if c.DailyLossLimit <= 0 {
		return fmt.Errorf("DAILY_LOSS_LIMIT must be positive, got %f", c.DailyLossLimit)
	}

	if c.BreakerHysteresisRatio < 1.0 {
		return fmt.Errorf("BREAKER_HYSTERESIS_RATIO must be >= 1.0, got %f", c.BreakerHysteresisRatio)
	}

	if c.ExecutionMode != "paper" && c.ExecutionMode != "live" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper' or 'live', got %q", c.ExecutionMode)
	}

	if c.MemoryMode != "postgres" && c.MemoryMode != "memory" {
		return fmt.Errorf("MEMORY_MODE must be 'postgres' or 'memory', got %q", c.MemoryMode)
	}

	if c.ExecutionMode == "live" && c.VenuePrivateKey == "" {
		return fmt.Errorf("VENUE_PRIVATE_KEY is required in live mode")
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
