package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/circuit"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/flow"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/gate"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/logging"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/notification"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/position"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/risk"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/setup"
)

type Config struct {
	EngineConfig       EngineConfig            `json:"engine"`
	ConditionConfig    condition.Config        `json:"condition"`
	FlowConfig         flow.Config             `json:"flow"`
	SetupConfig        setup.Config            `json:"setup"`
	RiskConfig         risk.Config             `json:"risk"`
	GateConfig         gate.Config             `json:"gate"`
	CircuitConfig      circuit.Config          `json:"circuit"`
	TrailingConfig     position.TrailingConfig `json:"trailing"`
	SessionConfig      SessionConfig           `json:"session"`
	NotificationConfig NotificationConfig      `json:"notification"`
	LoggingConfig      logging.Config          `json:"logging"`
	ServerConfig       ServerConfig            `json:"server"`
	AuthConfig         AuthConfig              `json:"auth"`
	VaultConfig        VaultConfig             `json:"vault"`
	RedisConfig        RedisConfig             `json:"redis"`
	DatabaseConfig     DatabaseConfig          `json:"database"`
}

// EngineConfig holds the decision-cycle configuration
type EngineConfig struct {
	Symbols         []string `json:"symbols"`
	Timeframe       string   `json:"timeframe"`         // e.g. "5m", "1h"
	BarLimit        int      `json:"bar_limit"`         // Bars fetched per symbol per cycle
	CycleInterval   int      `json:"cycle_interval"`    // Seconds between cycles
	WorkerCount     int      `json:"worker_count"`      // Concurrent symbol workers
	StartingBalance float64  `json:"starting_balance"`  // Paper account balance
	AccountID       string   `json:"account_id"`
	Broker          string   `json:"broker"`
	PaperTrading    bool     `json:"paper_trading"`
	SnapshotEvery   int      `json:"snapshot_every"` // Cycles between portfolio snapshots
}

// SessionConfig describes the trading session window
type SessionConfig struct {
	OpenHour   int    `json:"open_hour"`
	OpenMinute int    `json:"open_minute"`
	CloseHour  int    `json:"close_hour"`
	CloseMinute int   `json:"close_minute"`
	Timezone   string `json:"timezone"`
}

type NotificationConfig struct {
	Enabled  bool                        `json:"enabled"`
	Telegram notification.TelegramConfig `json:"telegram"`
	Discord  notification.DiscordConfig  `json:"discord"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout"`    // Seconds
	WriteTimeout    int    `json:"write_timeout"`   // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"`
	RateLimitPerMin int    `json:"rate_limit_per_min"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	Enabled              bool          `json:"enabled"`
	JWTSecret            string        `json:"jwt_secret"`
	AccessTokenDuration  time.Duration `json:"access_token_duration"`
	RefreshTokenDuration time.Duration `json:"refresh_token_duration"`
	MinPasswordLength    int           `json:"min_password_length"`
	OperatorName         string        `json:"operator_name"`
	OperatorPasswordHash string        `json:"operator_password_hash"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path prefix for credentials
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// RedisConfig holds Redis configuration for flow-signal caching
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// DatabaseConfig holds PostgreSQL configuration for the trade store
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// Default returns a config with every component at its defaults
func Default() *Config {
	return &Config{
		EngineConfig: EngineConfig{
			Symbols:         []string{"SPY", "QQQ", "AAPL"},
			Timeframe:       "5m",
			BarLimit:        120,
			CycleInterval:   300,
			WorkerCount:     4,
			StartingBalance: 100000,
			AccountID:       "default",
			Broker:          "paper",
			PaperTrading:    true,
			SnapshotEvery:   12,
		},
		ConditionConfig: condition.DefaultConfig(),
		FlowConfig:      flow.DefaultConfig(),
		SetupConfig:     setup.DefaultConfig(),
		RiskConfig:      risk.DefaultConfig(),
		GateConfig:      gate.DefaultConfig(),
		CircuitConfig:   circuit.DefaultConfig(),
		TrailingConfig: position.TrailingConfig{
			Enabled:           false,
			TrailingPercent:   1.0,
			ActivationPercent: 1.5,
		},
		SessionConfig: SessionConfig{
			OpenHour:    9,
			OpenMinute:  30,
			CloseHour:   16,
			CloseMinute: 0,
			Timezone:    "America/New_York",
		},
		LoggingConfig: logging.Config{
			Level:  "INFO",
			Output: "stdout",
		},
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
			RateLimitPerMin: 120,
		},
		AuthConfig: AuthConfig{
			Enabled:              false,
			AccessTokenDuration:  15 * time.Minute,
			RefreshTokenDuration: 7 * 24 * time.Hour,
			MinPasswordLength:    8,
		},
		VaultConfig: VaultConfig{
			Enabled:    false,
			Address:    "http://localhost:8200",
			MountPath:  "secret",
			SecretPath: "trading",
		},
		RedisConfig: RedisConfig{
			Enabled:  false,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		DatabaseConfig: DatabaseConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     5432,
			User:     "trading",
			Database: "trading",
			SSLMode:  "disable",
		},
	}
}

// Load reads config.json if present, then applies environment overrides
func Load() (*Config, error) {
	cfg := Default()

	if fileCfg, err := loadFromFile("config.json"); err == nil {
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	if len(c.EngineConfig.Symbols) == 0 {
		return fmt.Errorf("engine.symbols must not be empty")
	}
	if c.EngineConfig.CycleInterval <= 0 {
		return fmt.Errorf("engine.cycle_interval must be positive")
	}
	if c.EngineConfig.StartingBalance <= 0 {
		return fmt.Errorf("engine.starting_balance must be positive")
	}
	if c.AuthConfig.Enabled && c.AuthConfig.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	if c.GateConfig.MinRiskReward < 1.0 {
		return fmt.Errorf("gate.min_risk_reward must be at least 1.0")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// Engine config
	cfg.EngineConfig.Timeframe = getEnvOrDefault("ENGINE_TIMEFRAME", cfg.EngineConfig.Timeframe)
	cfg.EngineConfig.CycleInterval = getEnvIntOrDefault("ENGINE_CYCLE_INTERVAL", cfg.EngineConfig.CycleInterval)
	cfg.EngineConfig.WorkerCount = getEnvIntOrDefault("ENGINE_WORKER_COUNT", cfg.EngineConfig.WorkerCount)
	cfg.EngineConfig.PaperTrading = getEnvOrDefault("ENGINE_PAPER_TRADING", boolString(cfg.EngineConfig.PaperTrading)) == "true"
	cfg.EngineConfig.StartingBalance = getEnvFloatOrDefault("ENGINE_STARTING_BALANCE", cfg.EngineConfig.StartingBalance)

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolString(cfg.NotificationConfig.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", boolString(cfg.NotificationConfig.Telegram.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", boolString(cfg.NotificationConfig.Discord.Enabled)) == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolString(cfg.LoggingConfig.JSONFormat)) == "true"

	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	// Auth config
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", boolString(cfg.AuthConfig.Enabled)) == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", cfg.AuthConfig.AccessTokenDuration)
	cfg.AuthConfig.RefreshTokenDuration = getEnvDurationOrDefault("AUTH_REFRESH_TOKEN_DURATION", cfg.AuthConfig.RefreshTokenDuration)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolString(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDR", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DATABASE_ENABLED", boolString(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DATABASE_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DATABASE_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DATABASE_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DATABASE_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DATABASE_SSLMODE", cfg.DatabaseConfig.SSLMode)
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig writes a fully populated sample configuration file
func GenerateSampleConfig(filename string) error {
	data, err := json.MarshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
