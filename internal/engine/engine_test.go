package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/config"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/broker"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/circuit"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/events"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/flow"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/gate"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/position"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/risk"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/setup"
)

// stubData serves a fixed trending series for every symbol
type stubData struct {
	series *market.Series
}

func (s *stubData) GetBars(ctx context.Context, symbol, timeframe string, limit int) (*market.Series, error) {
	copied := *s.series
	copied.Symbol = symbol
	return &copied, nil
}

func (s *stubData) GetQuote(ctx context.Context, symbol string) (market.Quote, error) {
	return market.Quote{}, nil
}

// stubFlow serves strongly bullish flow for every symbol
type stubFlow struct{}

func (stubFlow) GetFlow(ctx context.Context, symbols []string, since time.Time) (*flow.Data, error) {
	data := &flow.Data{}
	for _, symbol := range symbols {
		for i := 0; i < 20; i++ {
			data.OptionsFlow = append(data.OptionsFlow, flow.OptionsRecord{
				Symbol: symbol, Type: flow.OptionCall, Size: 100, Premium: 5000, Timestamp: since,
			})
			data.DarkPool = append(data.DarkPool, flow.DarkPoolRecord{
				Symbol: symbol, Side: flow.SideBuy, Size: 10000, Price: 450, Timestamp: since,
			})
		}
	}
	return data, nil
}

// trendingSeries mirrors the classifier's TREND fixture: alternating upward
// steps, closes near the highs, expanded volume on the last bar.
func trendingSeries(n int) *market.Series {
	base := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	bars := make([]market.Bar, n)

	price := 100.0
	for i := range bars {
		if i%2 == 0 {
			price += 2.0
		} else {
			price += 0.5
		}
		bars[i] = market.Bar{
			Timestamp: base.Add(time.Duration(i) * 5 * time.Minute),
			Open:      price - 0.5,
			High:      price + 0.25,
			Low:       price - 1.0,
			Close:     price,
			Volume:    1000,
		}
	}
	bars[n-1].Volume = 2000

	return &market.Series{Bars: bars}
}

// newTestEngine wires a full pipeline against stub data and a paper broker
func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	session := market.Session{Open: 0, Close: 24 * time.Hour, Location: time.UTC}

	condCfg := condition.DefaultConfig()
	condCfg.EnforceSession = false

	gateCfg := gate.DefaultConfig()
	gateCfg.BaseCooldownMinutes = 0
	gateCfg.SessionBlackoutMinutes = 0

	riskCfg := risk.DefaultConfig()
	riskCfg.MaxPositionSizePercent = 100

	engCfg := config.EngineConfig{
		Symbols:         []string{"TST"},
		Timeframe:       "5m",
		BarLimit:        120,
		CycleInterval:   300,
		WorkerCount:     2,
		StartingBalance: 100000,
		PaperTrading:    true,
	}

	return New(engCfg, session, Deps{
		Data:         &stubData{series: trendingSeries(60)},
		FlowProvider: stubFlow{},
		Classifier:   condition.NewClassifier(condCfg, session),
		Scorer:       flow.NewScorer(flow.DefaultConfig(), nil),
		Generator:    setup.NewGenerator(setup.DefaultConfig(), riskCfg),
		RiskManager:  risk.NewManager(riskCfg, nil, nil),
		Gate:         gate.NewGate(gateCfg, session, time.Now()),
		Tracker:      position.NewTracker(nil, zerolog.Nop()),
		Broker:       broker.NewPaperBroker(engCfg.StartingBalance),
		EventBus:     events.NewEventBus(),
		Logger:       zerolog.Nop(),
	})
}

// TestRunCycleExecutesTrendTrade drives the full pipeline from bars to an
// open position.
func TestRunCycleExecutesTrendTrade(t *testing.T) {
	eng := newTestEngine(t)

	summary, err := eng.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if got := summary["symbols_evaluated"].(int); got != 1 {
		t.Errorf("symbols evaluated = %d, want 1", got)
	}
	if got := summary["setups_generated"].(int); got != 1 {
		t.Errorf("setups generated = %d, want 1", got)
	}
	if got := summary["trades_executed"].(int); got != 1 {
		t.Errorf("trades executed = %d, want 1", got)
	}

	positions := eng.OpenPositions()
	if len(positions) != 1 {
		t.Fatalf("open positions = %d, want 1", len(positions))
	}
	if positions[0].Symbol != "TST" {
		t.Errorf("position symbol = %s, want TST", positions[0].Symbol)
	}

	cond, ok := eng.Conditions()["TST"]
	if !ok {
		t.Fatal("conditions should carry the evaluated symbol")
	}
	if cond.Regime != condition.RegimeTrend {
		t.Errorf("regime = %s, want TREND", cond.Regime)
	}

	snap := eng.RiskSnapshot()
	if snap.OpenPositions != 1 || snap.OpenRiskAmount <= 0 {
		t.Errorf("risk snapshot = %d positions / %.2f risk, want an open allocation",
			snap.OpenPositions, snap.OpenRiskAmount)
	}
}

// TestRunCycleRejectsSecondEntry refuses to stack a second position on the
// same symbol while the first is open.
func TestRunCycleRejectsSecondEntry(t *testing.T) {
	eng := newTestEngine(t)

	if _, err := eng.RunCycle(context.Background()); err != nil {
		t.Fatalf("first cycle failed: %v", err)
	}

	summary, err := eng.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("second cycle failed: %v", err)
	}

	if got := summary["trades_executed"].(int); got != 0 {
		t.Errorf("second cycle executed %d trades, want 0", got)
	}
	if got := summary["trades_rejected"].(int); got != 1 {
		t.Errorf("second cycle rejected %d trades, want 1", got)
	}
	if len(eng.OpenPositions()) != 1 {
		t.Errorf("open positions = %d, want the original 1", len(eng.OpenPositions()))
	}
}

// TestRunCyclePublishesEvents checks the cycle fan-out on the bus
func TestRunCyclePublishesEvents(t *testing.T) {
	eng := newTestEngine(t)

	seen := make(map[events.EventType]int)
	eng.bus.SubscribeAll(func(e events.Event) { seen[e.Type]++ })

	if _, err := eng.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	for _, want := range []events.EventType{
		events.EventCycleStarted,
		events.EventSetupGenerated,
		events.EventTradeExecuted,
		events.EventCycleCompleted,
	} {
		if seen[want] == 0 {
			t.Errorf("event %s was never published", want)
		}
	}
}

// TestRunCycleHonorsTrippedBreaker blocks entries while the circuit breaker
// is open, before sizing or gating run.
func TestRunCycleHonorsTrippedBreaker(t *testing.T) {
	eng := newTestEngine(t)

	breaker := circuit.NewBreaker(circuit.Config{
		Enabled:              true,
		MaxConsecutiveLosses: 1,
		CooldownMinutes:      60,
	})
	breaker.RecordClose(-1.0, time.Now())
	eng.breaker = breaker

	summary, err := eng.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	if got := summary["trades_executed"].(int); got != 0 {
		t.Errorf("executed %d trades with an open breaker, want 0", got)
	}
	if got := summary["trades_rejected"].(int); got != 1 {
		t.Errorf("rejected %d trades, want 1", got)
	}
	if len(eng.OpenPositions()) != 0 {
		t.Error("no position should open while the breaker is tripped")
	}

	stats, ok := eng.Status()["circuit_breaker"].(map[string]interface{})
	if !ok {
		t.Fatal("status should include the circuit breaker stats")
	}
	if stats["state"] != string(circuit.StateOpen) {
		t.Errorf("breaker state = %v, want OPEN", stats["state"])
	}
}

// TestPauseResume flips the paused flag reported by Status
func TestPauseResume(t *testing.T) {
	eng := newTestEngine(t)

	eng.Pause()
	if status := eng.Status(); status["paused"] != true {
		t.Error("status should report paused after Pause")
	}

	eng.Resume()
	if status := eng.Status(); status["paused"] != false {
		t.Error("status should report unpaused after Resume")
	}

	if status := eng.Status(); status["cooldown_status"] != string(gate.StatusReady) {
		t.Errorf("cooldown status = %v, want READY before any trade", status["cooldown_status"])
	}
}
