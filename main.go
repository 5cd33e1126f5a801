package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/config"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/api"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/auth"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/broker"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/cache"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/circuit"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/database"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/engine"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/events"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/flow"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/gate"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/logging"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/notification"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/position"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/risk"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/setup"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/vault"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	appLog := logging.New(&cfg.LoggingConfig)
	logging.SetDefault(appLog)
	appLog.Info("trade decision engine starting")

	logger := newZerolog(cfg)

	bus := events.NewEventBus()

	notifier := buildNotifier(cfg, appLog)

	var repo *database.Repository
	var db *database.DB
	if cfg.DatabaseConfig.Enabled {
		db, err = database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		})
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.RunMigrations(migrateCtx); err != nil {
			cancel()
			return fmt.Errorf("migrations failed: %w", err)
		}
		cancel()

		repo = database.NewRepository(db, logger)
		appLog.Info("trade store connected")
	} else {
		appLog.Info("trade store disabled, trades will not be persisted")
	}

	cacheService := cache.NewService(cache.Config{
		Enabled:  cfg.RedisConfig.Enabled,
		Address:  cfg.RedisConfig.Address,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
		PoolSize: cfg.RedisConfig.PoolSize,
	})
	defer cacheService.Close()

	vaultClient, err := vault.NewClient(cfg.VaultConfig)
	if err != nil {
		return fmt.Errorf("vault client failed: %w", err)
	}
	if vaultClient.IsEnabled() {
		healthCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := vaultClient.Health(healthCtx); err != nil {
			appLog.Warnf("vault health check failed: %v", err)
		}
		cancel()

		credCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if _, err := vaultClient.GetCredentials(credCtx, cfg.EngineConfig.AccountID, cfg.EngineConfig.Broker, cfg.EngineConfig.PaperTrading); err != nil {
			appLog.Warnf("no stored credentials for broker %s: %v", cfg.EngineConfig.Broker, err)
		}
		cancel()
	}

	session, err := buildSession(cfg.SessionConfig)
	if err != nil {
		return fmt.Errorf("session config invalid: %w", err)
	}

	classifier := condition.NewClassifier(cfg.ConditionConfig, session)
	scorer := flow.NewScorer(cfg.FlowConfig, cacheService)
	generator := setup.NewGenerator(cfg.SetupConfig, cfg.RiskConfig)
	riskMgr := risk.NewManager(cfg.RiskConfig, nil, nil)
	execGate := gate.NewGate(cfg.GateConfig, session, time.Now())

	breaker := circuit.NewBreaker(cfg.CircuitConfig)
	breaker.OnTrip(func(reason string) {
		appLog.Warnf("circuit breaker tripped: %s", reason)
		bus.Publish(events.EventBreakerTripped, map[string]interface{}{"reason": reason})
		if notifier != nil {
			notifier.SendError("Circuit breaker tripped", reason)
		}
	})
	breaker.OnRecover(func() {
		appLog.Info("circuit breaker reset, entries re-enabled")
		bus.Publish(events.EventBreakerReset, nil)
	})

	var trailing *position.TrailingStopManager
	if cfg.TrailingConfig.Enabled {
		trailing = position.NewTrailingStopManager(cfg.TrailingConfig)
	}
	tracker := position.NewTracker(trailing, logger)

	paperBroker := broker.NewPaperBroker(cfg.EngineConfig.StartingBalance)
	if !cfg.EngineConfig.PaperTrading {
		appLog.Warn("live brokers are not configured, falling back to paper trading")
	}

	seed := time.Now().UnixNano()
	dataProvider := market.NewSimProvider(seed)
	flowProvider := flow.NewSimProvider(seed + 1)

	eng := engine.New(cfg.EngineConfig, session, engine.Deps{
		Data:         dataProvider,
		FlowProvider: flowProvider,
		Classifier:   classifier,
		Scorer:       scorer,
		Generator:    generator,
		RiskManager:  riskMgr,
		Gate:         execGate,
		Breaker:      breaker,
		Tracker:      tracker,
		Broker:       paperBroker,
		Store:        repo,
		EventBus:     bus,
		Notifier:     notifier,
		Logger:       logger,
	})

	var jwtManager *auth.JWTManager
	if cfg.AuthConfig.Enabled {
		jwtManager = auth.NewJWTManager(
			cfg.AuthConfig.JWTSecret,
			cfg.AuthConfig.AccessTokenDuration,
			cfg.AuthConfig.RefreshTokenDuration,
		)
	}

	server := api.NewServer(api.ServerConfig{
		Port:            cfg.ServerConfig.Port,
		Host:            cfg.ServerConfig.Host,
		AllowedOrigins:  cfg.ServerConfig.AllowedOrigins,
		ProductionMode:  true,
		RateLimitPerMin: cfg.ServerConfig.RateLimitPerMin,
	}, eng, repo, bus, jwtManager, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		errCh <- eng.Start(ctx)
	}()
	go func() {
		errCh <- server.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			appLog.Errorf("component failed: %v", err)
		}
	}

	eng.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ServerConfig.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Errorf("server shutdown failed: %v", err)
	}

	appLog.Info("trade decision engine stopped")
	return nil
}

func newZerolog(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(toZerologLevel(cfg.LoggingConfig.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func toZerologLevel(level string) string {
	switch logging.ParseLevel(level) {
	case logging.DEBUG:
		return "debug"
	case logging.WARN:
		return "warn"
	case logging.ERROR:
		return "error"
	default:
		return "info"
	}
}

func buildNotifier(cfg *config.Config, appLog *logging.Logger) *notification.Manager {
	if !cfg.NotificationConfig.Enabled {
		return nil
	}

	manager := notification.NewManager()
	manager.AddNotifier(notification.NewTelegramNotifier(cfg.NotificationConfig.Telegram))
	manager.AddNotifier(notification.NewDiscordNotifier(cfg.NotificationConfig.Discord))
	appLog.Info("notifications enabled")
	return manager
}

func buildSession(cfg config.SessionConfig) (market.Session, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return market.Session{}, fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, err)
	}

	return market.Session{
		Open:     time.Duration(cfg.OpenHour)*time.Hour + time.Duration(cfg.OpenMinute)*time.Minute,
		Close:    time.Duration(cfg.CloseHour)*time.Hour + time.Duration(cfg.CloseMinute)*time.Minute,
		Location: loc,
	}, nil
}
