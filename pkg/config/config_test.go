package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.LoopInterval)
	assert.Equal(t, 1*time.Hour, cfg.ResearchInterval)
	assert.Equal(t, 1000.0, cfg.Bankroll)
	assert.Equal(t, 10.0, cfg.MinBet)
	assert.Equal(t, 100.0, cfg.MaxBet)
	assert.Equal(t, 2.0, cfg.MinEVThreshold)
	assert.Equal(t, 0.25, cfg.MaxKellyFraction)
	assert.Equal(t, 5, cfg.DailyBetLimit)
	assert.Equal(t, 100.0, cfg.DailyLossLimit)
	assert.Equal(t, 0.10, cfg.PortfolioCapPct)
	assert.Equal(t, "paper", cfg.ExecutionMode)
	assert.Equal(t, "memory", cfg.MemoryMode)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("BANKROLL", "5000")
	t.Setenv("DAILY_BET_LIMIT", "8")
	t.Setenv("LOOP_INTERVAL", "30s")
	t.Setenv("MIN_EV_THRESHOLD", "3.5")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 5000.0, cfg.Bankroll)
	assert.Equal(t, 8, cfg.DailyBetLimit)
	assert.Equal(t, 30*time.Second, cfg.LoopInterval)
	assert.Equal(t, 3.5, cfg.MinEVThreshold)
}

func TestLoadFromEnv_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("BANKROLL", "not-a-number")
	t.Setenv("LOOP_INTERVAL", "soon")
	t.Setenv("DAILY_BET_LIMIT", "many")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.Bankroll)
	assert.Equal(t, 60*time.Second, cfg.LoopInterval)
	assert.Equal(t, 5, cfg.DailyBetLimit)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			HTTPPort:               "8080",
			LoopInterval:           time.Minute,
			Bankroll:               1000,
			MinBet:                 10,
			MaxBet:                 100,
			MaxKellyFraction:       0.25,
			PortfolioCapPct:        0.1,
			DailyBetLimit:          5,
			DailyLossLimit:         100,
			BreakerHysteresisRatio: 1.5,
			ExecutionMode:          "paper",
			MemoryMode:             "memory",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty_http_port",
			mutate:  func(c *Config) { c.HTTPPort = "" },
			wantErr: "HTTP_PORT",
		},
		{
			name:    "zero_loop_interval",
			mutate:  func(c *Config) { c.LoopInterval = 0 },
			wantErr: "LOOP_INTERVAL",
		},
		{
			name:    "negative_bankroll",
			mutate:  func(c *Config) { c.Bankroll = -1 },
			wantErr: "BANKROLL",
		},
		{
			name:    "max_bet_below_min_bet",
			mutate:  func(c *Config) { c.MaxBet = 5 },
			wantErr: "bet bounds",
		},
		{
			name:    "kelly_fraction_above_one",
			mutate:  func(c *Config) { c.MaxKellyFraction = 1.5 },
			wantErr: "MAX_KELLY_FRACTION",
		},
		{
			name:    "portfolio_cap_above_one",
			mutate:  func(c *Config) { c.PortfolioCapPct = 2.0 },
			wantErr: "PORTFOLIO_CAP_PCT",
		},
		{
			name:    "zero_daily_bet_limit",
			mutate:  func(c *Config) { c.DailyBetLimit = 0 },
			wantErr: "DAILY_BET_LIMIT",
		},
		{
			name:    "hysteresis_below_one",
			mutate:  func(c *Config) { c.BreakerHysteresisRatio = 0.9 },
			wantErr: "BREAKER_HYSTERESIS_RATIO",
		},
		{
			name:    "unknown_execution_mode",
			mutate:  func(c *Config) { c.ExecutionMode = "yolo" },
			wantErr: "EXECUTION_MODE",
		},
		{
			name:    "unknown_memory_mode",
			mutate:  func(c *Config) { c.MemoryMode = "redis" },
			wantErr: "MEMORY_MODE",
		},
		{
			name:    "live_mode_requires_private_key",
			mutate:  func(c *Config) { c.ExecutionMode = "live" },
			wantErr: "VENUE_PRIVATE_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
