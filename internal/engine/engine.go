// Package engine runs the trade decision cycle: classify market conditions,
// score institutional flow, generate setups, size them, gate them, and manage
// the resulting positions.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/config"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/broker"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/circuit"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/database"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/events"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/flow"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/gate"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/notification"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/position"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/risk"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/setup"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// closeSettler is implemented by brokers that settle realized P&L locally,
// like the paper broker.
type closeSettler interface {
	SettleClose(closed trade.ClosedTrade)
}

// Engine wires the decision pipeline together and drives it on a timer
type Engine struct {
	cfg     config.EngineConfig
	session market.Session

	data         market.DataProvider
	flowProvider flow.DataProvider
	classifier   *condition.Classifier
	scorer       *flow.Scorer
	generator    *setup.Generator
	riskMgr      *risk.Manager
	gate         *gate.Gate
	breaker      *circuit.Breaker
	tracker      *position.Tracker
	broker       broker.Gateway
	store        *database.Repository
	bus          *events.EventBus
	notifier     *notification.Manager
	logger       zerolog.Logger

	mu         sync.RWMutex
	running    bool
	paused     bool
	cycleCount int
	lastCycle  time.Time
	conditions map[string]condition.MarketCondition
	cancel     context.CancelFunc
}

// Deps bundles the engine's collaborators. Store and Notifier may be nil.
type Deps struct {
	Data         market.DataProvider
	FlowProvider flow.DataProvider
	Classifier   *condition.Classifier
	Scorer       *flow.Scorer
	Generator    *setup.Generator
	RiskManager  *risk.Manager
	Gate         *gate.Gate
	Breaker      *circuit.Breaker
	Tracker      *position.Tracker
	Broker       broker.Gateway
	Store        *database.Repository
	EventBus     *events.EventBus
	Notifier     *notification.Manager
	Logger       zerolog.Logger
}

// New creates a decision engine
func New(cfg config.EngineConfig, session market.Session, deps Deps) *Engine {
	return &Engine{
		cfg:          cfg,
		session:      session,
		data:         deps.Data,
		flowProvider: deps.FlowProvider,
		classifier:   deps.Classifier,
		scorer:       deps.Scorer,
		generator:    deps.Generator,
		riskMgr:      deps.RiskManager,
		gate:         deps.Gate,
		breaker:      deps.Breaker,
		tracker:      deps.Tracker,
		broker:       deps.Broker,
		store:        deps.Store,
		bus:          deps.EventBus,
		notifier:     deps.Notifier,
		logger:       deps.Logger.With().Str("component", "engine").Logger(),
		conditions:   make(map[string]condition.MarketCondition),
	}
}

// Start runs decision cycles on the configured interval until the context is
// cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.running = true
	e.mu.Unlock()

	interval := time.Duration(e.cfg.CycleInterval) * time.Second
	e.logger.Info().
		Dur("interval", interval).
		Strs("symbols", e.cfg.Symbols).
		Msg("engine started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			e.logger.Info().Msg("engine stopped")
			return nil
		case <-ticker.C:
			if e.isPaused() {
				continue
			}
			if _, err := e.RunCycle(ctx); err != nil {
				e.logger.Error().Err(err).Msg("cycle failed")
			}
		}
	}
}

// Stop cancels the run loop
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Pause suspends cycle execution without stopping the loop
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
	e.logger.Info().Msg("engine paused")
}

// Resume re-enables cycle execution
func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	e.logger.Info().Msg("engine resumed")
}

func (e *Engine) isPaused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

// Status reports the engine's run state for the API
func (e *Engine) Status() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := time.Now()
	status := map[string]interface{}{
		"running":         e.running,
		"paused":          e.paused,
		"cycle_count":     e.cycleCount,
		"last_cycle_at":   e.lastCycle,
		"symbols":         e.cfg.Symbols,
		"timeframe":       e.cfg.Timeframe,
		"open_positions":  e.tracker.Count(),
		"daily_trades":    e.riskMgr.DailyTradeCount(now),
		"cooldown_status": string(e.gate.Status(now)),
	}
	if e.breaker != nil {
		status["circuit_breaker"] = e.breaker.Stats(now)
	}
	return status
}

// Conditions returns the latest market condition per symbol
func (e *Engine) Conditions() map[string]condition.MarketCondition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]condition.MarketCondition, len(e.conditions))
	for k, v := range e.conditions {
		out[k] = v
	}
	return out
}

// OpenPositions returns all currently tracked positions
func (e *Engine) OpenPositions() []trade.Position {
	return e.tracker.Active()
}

// RiskSnapshot returns the current portfolio risk state
func (e *Engine) RiskSnapshot() risk.PortfolioSnapshot {
	return e.riskMgr.Snapshot(time.Now())
}
