// Package position tracks open positions through their lifecycle: price
// refresh, unrealized P&L, exit-condition evaluation and conversion into
// immutable closed-trade records.
package position

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// ErrPositionExists is returned when opening a symbol that already has an
// active position.
var ErrPositionExists = errors.New("position already open for symbol")

// ExitSignalFunc lets callers supply a discretionary or time-based exit.
// It is consulted only after stop-loss and profit-target checks pass.
type ExitSignalFunc func(pos trade.Position, now time.Time) (bool, string)

// Tracker manages the set of active positions. At most one position exists
// per symbol at any time.
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]*trade.Position
	trailed   map[string]bool // symbols whose stop has been trailed
	trailing  *TrailingStopManager
	logger    zerolog.Logger
}

// NewTracker creates a position tracker. trailing may be nil to disable
// trailing stops.
func NewTracker(trailing *TrailingStopManager, logger zerolog.Logger) *Tracker {
	return &Tracker{
		positions: make(map[string]*trade.Position),
		trailed:   make(map[string]bool),
		trailing:  trailing,
		logger:    logger,
	}
}

// Open creates an active position from an accepted sized order
func (t *Tracker) Open(order trade.SizedOrder, now time.Time) (trade.Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.positions[order.Symbol]; exists {
		return trade.Position{}, ErrPositionExists
	}

	pos := &trade.Position{
		ID:           uuid.New().String(),
		Symbol:       order.Symbol,
		Direction:    order.Direction,
		EntryPrice:   order.EntryPrice,
		CurrentPrice: order.EntryPrice,
		Quantity:     order.Shares,
		StopLoss:     order.StopLoss,
		ProfitTarget: order.ProfitTarget,
		EntryTime:    now,
	}
	t.positions[order.Symbol] = pos

	if t.trailing != nil {
		t.trailing.AddPosition(pos.Symbol, pos.Direction, pos.EntryPrice, pos.StopLoss)
	}

	t.logger.Info().
		Str("symbol", pos.Symbol).
		Str("direction", string(pos.Direction)).
		Float64("entry", pos.EntryPrice).
		Float64("quantity", pos.Quantity).
		Float64("stop_loss", pos.StopLoss).
		Float64("profit_target", pos.ProfitTarget).
		Msg("position opened")

	return *pos, nil
}

// Has reports whether a symbol currently has an active position
func (t *Tracker) Has(symbol string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.positions[symbol]
	return ok
}

// Get returns a copy of the position for symbol
func (t *Tracker) Get(symbol string) (trade.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[symbol]
	if !ok {
		return trade.Position{}, false
	}
	return *pos, true
}

// Active returns copies of all open positions
func (t *Tracker) Active() []trade.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]trade.Position, 0, len(t.positions))
	for _, pos := range t.positions {
		out = append(out, *pos)
	}
	return out
}

// Count returns the number of open positions
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.positions)
}

// Update refreshes every position against the latest prices, recomputes
// unrealized P&L and evaluates exit conditions in priority order: stop-loss
// touch, profit-target touch, then the supplied discretionary exit signal.
// Triggered positions are removed and returned as closed trades.
func (t *Tracker) Update(prices map[string]float64, now time.Time, exitSignal ExitSignalFunc) []trade.ClosedTrade {
	t.mu.Lock()
	defer t.mu.Unlock()

	var closed []trade.ClosedTrade

	for symbol, pos := range t.positions {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			continue // no fresh price this cycle, carry the position
		}

		pos.CurrentPrice = price
		t.refreshPnL(pos)

		if t.trailing != nil {
			if update := t.trailing.UpdatePrice(symbol, price); update != nil {
				pos.StopLoss = update.NewStopLoss
				t.trailed[symbol] = true
			}
		}

		if reason, hit := t.exitReason(pos, now, exitSignal); hit {
			closed = append(closed, t.closeLocked(pos, reason, now))
		}
	}

	return closed
}

// Close force-closes a position at the given price (e.g. manual close)
func (t *Tracker) Close(symbol string, price float64, reason string, now time.Time) (trade.ClosedTrade, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[symbol]
	if !ok {
		return trade.ClosedTrade{}, false
	}
	if price > 0 {
		pos.CurrentPrice = price
		t.refreshPnL(pos)
	}
	return t.closeLocked(pos, reason, now), true
}

func (t *Tracker) refreshPnL(pos *trade.Position) {
	if pos.Direction == trade.DirectionLong {
		pos.UnrealizedPnL = (pos.CurrentPrice - pos.EntryPrice) * pos.Quantity
	} else {
		pos.UnrealizedPnL = (pos.EntryPrice - pos.CurrentPrice) * pos.Quantity
	}

	notional := pos.EntryPrice * pos.Quantity
	if notional > 0 {
		pos.UnrealizedPnLPct = pos.UnrealizedPnL / notional * 100
	}
}

func (t *Tracker) exitReason(pos *trade.Position, now time.Time, exitSignal ExitSignalFunc) (string, bool) {
	stopHit := false
	targetHit := false

	if pos.Direction == trade.DirectionLong {
		stopHit = pos.CurrentPrice <= pos.StopLoss
		targetHit = pos.CurrentPrice >= pos.ProfitTarget
	} else {
		stopHit = pos.CurrentPrice >= pos.StopLoss
		targetHit = pos.CurrentPrice <= pos.ProfitTarget
	}

	if stopHit {
		if t.trailed[pos.Symbol] {
			return trade.ExitReasonTrailingStop, true
		}
		return trade.ExitReasonStopLoss, true
	}
	if targetHit {
		return trade.ExitReasonProfitTarget, true
	}
	if exitSignal != nil {
		if hit, reason := exitSignal(*pos, now); hit {
			if reason == "" {
				reason = trade.ExitReasonSignal
			}
			return reason, true
		}
	}

	return "", false
}

// closeLocked converts a position into a closed trade and removes it.
// Caller holds the write lock.
func (t *Tracker) closeLocked(pos *trade.Position, reason string, now time.Time) trade.ClosedTrade {
	closed := trade.ClosedTrade{
		ID:             pos.ID,
		Symbol:         pos.Symbol,
		Direction:      pos.Direction,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      pos.CurrentPrice,
		Quantity:       pos.Quantity,
		EntryTime:      pos.EntryTime,
		ExitTime:       now,
		RealizedPnL:    pos.UnrealizedPnL,
		RealizedPnLPct: pos.UnrealizedPnLPct,
		ExitReason:     reason,
	}

	delete(t.positions, pos.Symbol)
	delete(t.trailed, pos.Symbol)
	if t.trailing != nil {
		t.trailing.RemovePosition(pos.Symbol)
	}

	t.logger.Info().
		Str("symbol", closed.Symbol).
		Str("exit_reason", closed.ExitReason).
		Float64("exit_price", closed.ExitPrice).
		Float64("realized_pnl", closed.RealizedPnL).
		Msg("position closed")

	return closed
}
