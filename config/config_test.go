package config

import (
	"testing"
	"time"
)

// TestDefaultIsValid spot-checks the shipped defaults
func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
	if len(cfg.EngineConfig.Symbols) == 0 {
		t.Error("default config should ship with a symbol list")
	}
	if !cfg.EngineConfig.PaperTrading {
		t.Error("defaults must start in paper trading")
	}
	if cfg.EngineConfig.CycleInterval != 300 {
		t.Errorf("cycle interval = %d, want 300 seconds", cfg.EngineConfig.CycleInterval)
	}
	if cfg.AuthConfig.Enabled {
		t.Error("auth should default to disabled")
	}
	if cfg.AuthConfig.AccessTokenDuration != 15*time.Minute {
		t.Errorf("access token duration = %v, want 15m", cfg.AuthConfig.AccessTokenDuration)
	}
	if cfg.VaultConfig.Enabled || cfg.RedisConfig.Enabled || cfg.DatabaseConfig.Enabled {
		t.Error("external services should default to disabled")
	}
	if cfg.SessionConfig.OpenHour != 9 || cfg.SessionConfig.OpenMinute != 30 {
		t.Errorf("session open = %d:%02d, want 9:30", cfg.SessionConfig.OpenHour, cfg.SessionConfig.OpenMinute)
	}
}

// TestValidateRejections covers each fatal misconfiguration
func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no symbols", func(c *Config) { c.EngineConfig.Symbols = nil }},
		{"zero cycle interval", func(c *Config) { c.EngineConfig.CycleInterval = 0 }},
		{"negative starting balance", func(c *Config) { c.EngineConfig.StartingBalance = -1 }},
		{"auth without secret", func(c *Config) { c.AuthConfig.Enabled = true; c.AuthConfig.JWTSecret = "" }},
		{"risk/reward below one", func(c *Config) { c.GateConfig.MinRiskReward = 0.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("%s should fail validation", tc.name)
			}
		})
	}
}

// TestValidateAcceptsAuthWithSecret pairs the auth flag with a secret
func TestValidateAcceptsAuthWithSecret(t *testing.T) {
	cfg := Default()
	cfg.AuthConfig.Enabled = true
	cfg.AuthConfig.JWTSecret = "a-real-secret"

	if err := cfg.Validate(); err != nil {
		t.Errorf("auth with a secret should validate: %v", err)
	}
}

// TestEnvOverrides applies environment values over the defaults
func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_TIMEFRAME", "15m")
	t.Setenv("ENGINE_CYCLE_INTERVAL", "60")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("AUTH_ACCESS_TOKEN_DURATION", "30m")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.EngineConfig.Timeframe != "15m" {
		t.Errorf("timeframe = %q, want 15m", cfg.EngineConfig.Timeframe)
	}
	if cfg.EngineConfig.CycleInterval != 60 {
		t.Errorf("cycle interval = %d, want 60", cfg.EngineConfig.CycleInterval)
	}
	if cfg.LoggingConfig.Level != "DEBUG" {
		t.Errorf("log level = %q, want DEBUG", cfg.LoggingConfig.Level)
	}
	if cfg.AuthConfig.AccessTokenDuration != 30*time.Minute {
		t.Errorf("access token duration = %v, want 30m", cfg.AuthConfig.AccessTokenDuration)
	}
}

// TestEnvOverridesIgnoreMalformedNumbers keeps the default on parse failure
func TestEnvOverridesIgnoreMalformedNumbers(t *testing.T) {
	t.Setenv("ENGINE_CYCLE_INTERVAL", "not-a-number")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.EngineConfig.CycleInterval != 300 {
		t.Errorf("cycle interval = %d, want the 300 default on a malformed override", cfg.EngineConfig.CycleInterval)
	}
}
