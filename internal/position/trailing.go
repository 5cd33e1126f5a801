package position

import (
	"sync"
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// TrailingConfig holds trailing stop configuration
type TrailingConfig struct {
	Enabled           bool    `json:"enabled"`
	TrailingPercent   float64 `json:"trailing_percent"`   // distance from the water mark
	ActivationPercent float64 `json:"activation_percent"` // profit % required to start trailing
}

// trailingPosition tracks water marks for one position
type trailingPosition struct {
	Symbol        string
	Direction     trade.Direction
	EntryPrice    float64
	CurrentStop   float64
	HighWaterMark float64 // highest price since entry (longs)
	LowWaterMark  float64 // lowest price since entry (shorts)
	Activated     bool
	LastUpdate    time.Time
}

// StopUpdate reports a trailing stop adjustment
type StopUpdate struct {
	Symbol      string
	OldStopLoss float64
	NewStopLoss float64
}

// TrailingStopManager ratchets stops toward price once a position has moved
// far enough into profit. Stops only ever tighten.
type TrailingStopManager struct {
	mu        sync.RWMutex
	config    TrailingConfig
	positions map[string]*trailingPosition
}

// NewTrailingStopManager creates a trailing stop manager
func NewTrailingStopManager(config TrailingConfig) *TrailingStopManager {
	return &TrailingStopManager{
		config:    config,
		positions: make(map[string]*trailingPosition),
	}
}

// AddPosition begins tracking a newly opened position
func (tsm *TrailingStopManager) AddPosition(symbol string, direction trade.Direction, entryPrice, stopLoss float64) {
	if !tsm.config.Enabled {
		return
	}

	tsm.mu.Lock()
	defer tsm.mu.Unlock()

	tsm.positions[symbol] = &trailingPosition{
		Symbol:        symbol,
		Direction:     direction,
		EntryPrice:    entryPrice,
		CurrentStop:   stopLoss,
		HighWaterMark: entryPrice,
		LowWaterMark:  entryPrice,
		LastUpdate:    time.Now(),
	}
}

// RemovePosition stops tracking a symbol
func (tsm *TrailingStopManager) RemovePosition(symbol string) {
	tsm.mu.Lock()
	defer tsm.mu.Unlock()
	delete(tsm.positions, symbol)
}

// UpdatePrice advances the water marks and returns a StopUpdate when the
// trailing stop moved, or nil.
func (tsm *TrailingStopManager) UpdatePrice(symbol string, currentPrice float64) *StopUpdate {
	if !tsm.config.Enabled {
		return nil
	}

	tsm.mu.Lock()
	defer tsm.mu.Unlock()

	pos, exists := tsm.positions[symbol]
	if !exists || currentPrice <= 0 {
		return nil
	}

	if pos.Direction == trade.DirectionLong {
		return tsm.updateLong(pos, currentPrice)
	}
	return tsm.updateShort(pos, currentPrice)
}

func (tsm *TrailingStopManager) updateLong(pos *trailingPosition, price float64) *StopUpdate {
	if price > pos.HighWaterMark {
		pos.HighWaterMark = price
	}

	if !pos.Activated {
		profitPct := (price - pos.EntryPrice) / pos.EntryPrice * 100
		if profitPct < tsm.config.ActivationPercent {
			return nil
		}
		pos.Activated = true
	}

	newStop := pos.HighWaterMark * (1 - tsm.config.TrailingPercent/100)
	if newStop <= pos.CurrentStop {
		return nil
	}

	update := &StopUpdate{Symbol: pos.Symbol, OldStopLoss: pos.CurrentStop, NewStopLoss: newStop}
	pos.CurrentStop = newStop
	pos.LastUpdate = time.Now()
	return update
}

func (tsm *TrailingStopManager) updateShort(pos *trailingPosition, price float64) *StopUpdate {
	if price < pos.LowWaterMark {
		pos.LowWaterMark = price
	}

	if !pos.Activated {
		profitPct := (pos.EntryPrice - price) / pos.EntryPrice * 100
		if profitPct < tsm.config.ActivationPercent {
			return nil
		}
		pos.Activated = true
	}

	newStop := pos.LowWaterMark * (1 + tsm.config.TrailingPercent/100)
	if newStop >= pos.CurrentStop {
		return nil
	}

	update := &StopUpdate{Symbol: pos.Symbol, OldStopLoss: pos.CurrentStop, NewStopLoss: newStop}
	pos.CurrentStop = newStop
	pos.LastUpdate = time.Now()
	return update
}
