package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/broker"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/events"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/flow"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// flowLookback bounds how far back raw flow records are requested each cycle.
const flowLookback = time.Hour

// symbolResult carries one symbol's per-cycle evaluation out of the worker pool
type symbolResult struct {
	symbol string
	series *market.Series
	quote  market.Quote
	cond   condition.MarketCondition
	signal flow.Signal
	setups []trade.Setup
	err    error
}

// RunCycle executes one full decision cycle and returns a summary.
// Symbol evaluation is concurrent; gate and risk mutation is serialized so
// cooldown and budget checks see a consistent state.
func (e *Engine) RunCycle(ctx context.Context) (map[string]interface{}, error) {
	started := time.Now()
	cycleID := uuid.New().String()

	e.bus.Publish(events.EventCycleStarted, map[string]interface{}{
		"cycle_id": cycleID,
	})

	e.refreshAccount(ctx)
	flowData := e.fetchFlow(ctx, started)

	results := e.evaluateSymbols(ctx, flowData, started)

	conds := make(map[string]condition.MarketCondition, len(results))
	prices := make(map[string]float64, len(results))
	for _, r := range results {
		if r.err != nil {
			e.logger.Warn().Err(r.err).Str("symbol", r.symbol).Msg("symbol evaluation degraded")
			e.bus.Publish(events.EventError, map[string]interface{}{
				"cycle_id": cycleID,
				"symbol":   r.symbol,
				"error":    r.err.Error(),
			})
		}
		conds[r.symbol] = r.cond
		if r.series != nil && r.series.Len() > 0 {
			prices[r.symbol] = r.series.LastClose()
		}
	}

	e.publishRegimeChanges(conds)

	closed := e.updatePositions(ctx, conds, prices, started)

	executed, rejected, generated := e.processSetups(ctx, results, started)

	e.mu.Lock()
	e.cycleCount++
	count := e.cycleCount
	e.lastCycle = started
	for k, v := range conds {
		e.conditions[k] = v
	}
	e.mu.Unlock()

	if e.cfg.SnapshotEvery > 0 && count%e.cfg.SnapshotEvery == 0 {
		e.takeSnapshot(ctx, started)
	}

	summary := map[string]interface{}{
		"cycle_id":          cycleID,
		"duration_ms":       time.Since(started).Milliseconds(),
		"symbols_evaluated": len(results),
		"setups_generated":  generated,
		"trades_executed":   executed,
		"trades_rejected":   rejected,
		"positions_closed":  len(closed),
	}

	e.bus.Publish(events.EventCycleCompleted, summary)
	e.logger.Info().
		Str("cycle_id", cycleID).
		Int("setups", generated).
		Int("executed", executed).
		Int("rejected", rejected).
		Int("closed", len(closed)).
		Msg("cycle completed")

	return summary, nil
}

// refreshAccount pulls equity and buying power from the broker. On failure the
// risk manager keeps its previous account state.
func (e *Engine) refreshAccount(ctx context.Context) {
	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("account refresh failed, using last known state")
		return
	}
	e.riskMgr.UpdateAccount(account.Balance, account.BuyingPower)
}

// fetchFlow retrieves raw flow records for all symbols. A failed provider
// degrades to empty flow, which scores neutral.
func (e *Engine) fetchFlow(ctx context.Context, now time.Time) *flow.Data {
	if e.flowProvider == nil {
		return &flow.Data{}
	}
	data, err := e.flowProvider.GetFlow(ctx, e.cfg.Symbols, now.Add(-flowLookback))
	if err != nil || data == nil {
		if err != nil {
			e.logger.Warn().Err(err).Msg("flow provider failed, scoring neutral")
		}
		return &flow.Data{}
	}
	return data
}

// evaluateSymbols fans symbols out over a worker pool and collects the
// per-symbol pipeline results.
func (e *Engine) evaluateSymbols(ctx context.Context, flowData *flow.Data, now time.Time) []symbolResult {
	workers := e.cfg.WorkerCount
	if workers <= 0 {
		workers = 1
	}
	if workers > len(e.cfg.Symbols) {
		workers = len(e.cfg.Symbols)
	}

	jobs := make(chan string, len(e.cfg.Symbols))
	out := make(chan symbolResult, len(e.cfg.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				out <- e.evaluateSymbol(ctx, symbol, flowData, now)
			}
		}()
	}

	for _, symbol := range e.cfg.Symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]symbolResult, 0, len(e.cfg.Symbols))
	for r := range out {
		results = append(results, r)
	}
	return results
}

// evaluateSymbol runs classification, flow scoring, and setup generation for
// one symbol. Any data failure degrades to a neutral, setup-free result.
func (e *Engine) evaluateSymbol(ctx context.Context, symbol string, flowData *flow.Data, now time.Time) symbolResult {
	result := symbolResult{symbol: symbol}

	series, err := e.data.GetBars(ctx, symbol, e.cfg.Timeframe, e.cfg.BarLimit)
	if err == nil && series != nil {
		err = series.Validate()
	}
	if err != nil {
		result.err = err
		result.cond = e.classifier.Classify(nil, now)
		result.cond.Symbol = symbol
		return result
	}
	result.series = series

	if quote, qerr := e.data.GetQuote(ctx, symbol); qerr == nil {
		result.quote = quote
	}

	result.cond = e.classifier.Classify(series, now)

	result.signal = e.scorer.Score(ctx,
		symbol,
		flow.FilterOptions(flowData.OptionsFlow, symbol),
		flow.FilterDarkPool(flowData.DarkPool, symbol),
		series,
		now,
	)

	result.setups = e.generator.Generate(result.cond, result.signal, series, now)
	return result
}

// publishRegimeChanges emits an event for every symbol whose regime moved
// since the previous cycle.
func (e *Engine) publishRegimeChanges(conds map[string]condition.MarketCondition) {
	e.mu.RLock()
	previous := make(map[string]condition.Regime, len(e.conditions))
	for k, v := range e.conditions {
		previous[k] = v.Regime
	}
	e.mu.RUnlock()

	for symbol, cond := range conds {
		prev, seen := previous[symbol]
		if seen && prev != cond.Regime {
			e.bus.Publish(events.EventRegimeChange, map[string]interface{}{
				"symbol": symbol,
				"from":   string(prev),
				"to":     string(cond.Regime),
			})
		}
	}
}

// updatePositions marks positions to the latest prices and settles any exits.
// A position exits on signal when the regime trends against its direction.
func (e *Engine) updatePositions(ctx context.Context, conds map[string]condition.MarketCondition, prices map[string]float64, now time.Time) []trade.ClosedTrade {
	exitFn := func(pos trade.Position, _ time.Time) (bool, string) {
		cond, ok := conds[pos.Symbol]
		if !ok || cond.Regime != condition.RegimeTrend {
			return false, ""
		}
		if pos.Direction == trade.DirectionLong && cond.TrendDirection == condition.TrendBearish {
			return true, trade.ExitReasonSignal
		}
		if pos.Direction == trade.DirectionShort && cond.TrendDirection == condition.TrendBullish {
			return true, trade.ExitReasonSignal
		}
		return false, ""
	}

	closed := e.tracker.Update(prices, now, exitFn)

	for _, ct := range closed {
		e.riskMgr.ReleaseRisk(ct.Symbol)

		if e.breaker != nil {
			e.breaker.RecordClose(ct.RealizedPnLPct, now)
		}

		if settler, ok := e.broker.(closeSettler); ok {
			settler.SettleClose(ct)
		}

		if e.store != nil {
			if err := e.store.Record(ctx, ct); err != nil {
				e.logger.Error().Err(err).Str("symbol", ct.Symbol).Msg("failed to persist closed trade")
			}
		}

		if e.notifier != nil {
			e.notifier.SendTradeClose(ct.Symbol, ct.EntryPrice, ct.ExitPrice, ct.RealizedPnL, ct.RealizedPnLPct, ct.ExitReason)
		}

		e.bus.Publish(events.EventPositionClosed, map[string]interface{}{
			"symbol":      ct.Symbol,
			"exit_reason": ct.ExitReason,
			"pnl":         ct.RealizedPnL,
			"pnl_pct":     ct.RealizedPnLPct,
		})
	}

	for _, pos := range e.tracker.Active() {
		e.bus.Publish(events.EventPositionUpdated, map[string]interface{}{
			"symbol":  pos.Symbol,
			"pnl":     pos.UnrealizedPnL,
			"pnl_pct": pos.UnrealizedPnLPct,
		})
	}

	return closed
}

// processSetups sizes, gates, and executes setups one at a time. A tripped
// circuit breaker rejects every setup in the cycle before sizing.
func (e *Engine) processSetups(ctx context.Context, results []symbolResult, now time.Time) (executed, rejected, generated int) {
	for _, r := range results {
		for _, s := range r.setups {
			generated++

			e.bus.Publish(events.EventSetupGenerated, map[string]interface{}{
				"symbol":     s.Symbol,
				"direction":  string(s.Direction),
				"setup_type": string(s.SetupType),
				"entry":      s.EntryPrice,
				"confidence": s.Confidence,
			})

			if e.notifier != nil {
				e.notifier.SendSetup(s.Symbol, string(s.Direction), string(s.SetupType), s.Rationale, s.EntryPrice, s.StopLoss, s.ProfitTarget)
			}

			if e.breaker != nil {
				if allowed, reason := e.breaker.Allow(now); !allowed {
					rejected++
					e.rejectTrade(trade.SizedOrder{Setup: s}, reason)
					continue
				}
			}

			sized := e.riskMgr.SizeSetup(s, r.cond)
			if !sized.CanTrade {
				rejected++
				e.rejectTrade(sized, sized.SizeReason)
				continue
			}

			decision := e.gate.Evaluate(sized, r.cond, r.series, r.quote, e.tracker.Has(s.Symbol), now)
			if !decision.Accepted {
				rejected++
				e.rejectTrade(sized, decision.Reason)
				continue
			}

			if err := e.executeOrder(ctx, sized, r.cond, now); err != nil {
				rejected++
				e.logger.Error().Err(err).Str("symbol", s.Symbol).Msg("order execution failed")
				e.rejectTrade(sized, err.Error())
				continue
			}
			executed++
		}
	}
	return executed, rejected, generated
}

func (e *Engine) rejectTrade(sized trade.SizedOrder, reason string) {
	e.logger.Debug().Str("symbol", sized.Symbol).Str("reason", reason).Msg("trade rejected")
	e.bus.Publish(events.EventTradeRejected, map[string]interface{}{
		"symbol": sized.Symbol,
		"reason": reason,
	})
}

// executeOrder submits an accepted order, opens the tracked position, and
// updates gate and risk state.
func (e *Engine) executeOrder(ctx context.Context, sized trade.SizedOrder, cond condition.MarketCondition, now time.Time) error {
	resp, err := e.broker.SubmitOrder(ctx, broker.OrderRequest{
		Symbol:    sized.Symbol,
		Direction: sized.Direction,
		Quantity:  sized.Shares,
		Price:     sized.EntryPrice,
		StopLoss:  sized.StopLoss,
		Target:    sized.ProfitTarget,
	})
	if err != nil {
		return err
	}

	pos, err := e.tracker.Open(sized, now)
	if err != nil {
		e.broker.CancelOrder(ctx, resp.OrderID)
		return err
	}

	e.riskMgr.ReserveRisk(sized.Symbol, sized.RiskAmount, sized.EntryPrice*sized.Shares)
	e.riskMgr.RegisterTrade(now)
	e.gate.RecordExecution(cond.Regime, sized.Confidence, now)

	if e.notifier != nil {
		e.notifier.SendTradeOpen(sized.Symbol, string(sized.Direction), sized.EntryPrice, sized.Shares)
	}

	e.bus.Publish(events.EventTradeExecuted, map[string]interface{}{
		"symbol":    pos.Symbol,
		"direction": string(pos.Direction),
		"shares":    pos.Quantity,
		"entry":     pos.EntryPrice,
		"order_id":  resp.OrderID,
	})

	e.logger.Info().
		Str("symbol", pos.Symbol).
		Str("direction", string(pos.Direction)).
		Float64("shares", pos.Quantity).
		Float64("entry", pos.EntryPrice).
		Msg("trade executed")

	return nil
}

func (e *Engine) takeSnapshot(ctx context.Context, now time.Time) {
	snap := e.riskMgr.Snapshot(now)

	if e.store != nil {
		if err := e.store.RecordSnapshot(ctx, snap); err != nil {
			e.logger.Error().Err(err).Msg("failed to persist portfolio snapshot")
		}
	}

	e.bus.Publish(events.EventSnapshotTaken, map[string]interface{}{
		"equity":         snap.Equity,
		"open_risk_pct":  snap.OpenRiskPercent,
		"open_positions": snap.OpenPositions,
		"daily_trades":   snap.DailyTradeCount,
	})
}
