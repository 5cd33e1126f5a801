// Package risk computes position sizes and stop/target placement and owns the
// portfolio risk state. All portfolio reads and writes go through the Manager
// so cooldown and budget checks observe a consistent snapshot.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// Config holds risk management configuration. Percentages are whole numbers:
// 1.0 means one percent.
type Config struct {
	MaxSingleTradeRiskPercent    float64 `json:"max_single_trade_risk_percent"`
	MaxPositionSizePercent       float64 `json:"max_position_size_percent"`
	MaxPortfolioRiskPercent      float64 `json:"max_portfolio_risk_percent"`
	MaxSectorExposurePercent     float64 `json:"max_sector_exposure_percent"`
	MaxCorrelatedExposurePercent float64 `json:"max_correlated_exposure_percent"`
	ATRStopMultiplier            float64 `json:"atr_stop_multiplier"`
	TrendATRMultiplier           float64 `json:"trend_atr_multiplier"`
	FallbackStopPercent          float64 `json:"fallback_stop_percent"`
	TargetRiskReward             float64 `json:"target_risk_reward"`
	LowVolThreshold              float64 `json:"low_vol_threshold"`  // annualized
	HighVolThreshold             float64 `json:"high_vol_threshold"` // annualized
}

// DefaultConfig returns conservative risk defaults
func DefaultConfig() Config {
	return Config{
		MaxSingleTradeRiskPercent:    1.0,
		MaxPositionSizePercent:       20.0,
		MaxPortfolioRiskPercent:      5.0,
		MaxSectorExposurePercent:     30.0,
		MaxCorrelatedExposurePercent: 40.0,
		ATRStopMultiplier:            2.0,
		TrendATRMultiplier:           1.5,
		FallbackStopPercent:          2.0,
		TargetRiskReward:             2.0,
		LowVolThreshold:              0.15,
		HighVolThreshold:             0.60,
	}
}

// openRisk tracks the risk allocation of one open position
type openRisk struct {
	RiskAmount float64
	Value      float64
}

// PortfolioSnapshot is a point-in-time view of the portfolio risk state
type PortfolioSnapshot struct {
	Timestamp        time.Time          `json:"timestamp"`
	Equity           float64            `json:"equity"`
	BuyingPower      float64            `json:"buying_power"`
	OpenRiskAmount   float64            `json:"open_risk_amount"`
	OpenRiskPercent  float64            `json:"open_risk_percent"`
	OpenPositions    int                `json:"open_positions"`
	DailyTradeCount  int                `json:"daily_trade_count"`
	PositionRisk     map[string]float64 `json:"position_risk"`
}

// Manager sizes trades and owns portfolio-level risk accounting
type Manager struct {
	mu          sync.RWMutex
	config      Config
	equity      float64
	buyingPower float64
	positions   map[string]openRisk
	dailyTrades int
	dailyReset  time.Time
	sectors     map[string]string   // symbol -> sector
	correlated  map[string][]string // symbol -> correlated symbols
}

// NewManager creates a risk manager. Sector and correlation lookups are
// optional; nil maps disable those exposure checks.
func NewManager(config Config, sectors map[string]string, correlated map[string][]string) *Manager {
	if config.ATRStopMultiplier <= 0 {
		config = DefaultConfig()
	}
	return &Manager{
		config:     config,
		positions:  make(map[string]openRisk),
		dailyReset: time.Now().Truncate(24 * time.Hour),
		sectors:    sectors,
		correlated: correlated,
	}
}

// Config returns the manager's risk configuration
func (m *Manager) Config() Config {
	return m.config
}

// UpdateAccount refreshes equity and buying power from the broker account
func (m *Manager) UpdateAccount(equity, buyingPower float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = equity
	m.buyingPower = buyingPower
}

// Equity returns the current portfolio value
func (m *Manager) Equity() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.equity
}

// SizeSetup turns a setup into a sized order under all risk limits. The
// returned order has CanTrade=false and a SizeReason when the trade cannot
// be taken at any size.
func (m *Manager) SizeSetup(setup trade.Setup, cond condition.MarketCondition) trade.SizedOrder {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := trade.SizedOrder{Setup: setup}

	if m.equity <= 0 {
		order.SizeReason = "no account equity"
		return order
	}

	riskPerShare := setup.RiskDistance()
	if riskPerShare <= 0 {
		order.SizeReason = "zero risk distance between entry and stop"
		return order
	}

	maxRiskAmount := m.equity * m.config.MaxSingleTradeRiskPercent / 100
	shares := math.Floor(maxRiskAmount / riskPerShare)

	// Composite scaling from market context
	shares = math.Floor(shares * m.sizeFactor(setup.Direction, cond))

	// Hard cap: never exceed the per-trade risk limit after scaling
	if shares*riskPerShare > maxRiskAmount {
		shares = math.Floor(maxRiskAmount / riskPerShare)
	}

	// Position value caps: percent of equity, then buying power
	maxPositionValue := m.equity * m.config.MaxPositionSizePercent / 100
	if shares*setup.EntryPrice > maxPositionValue {
		shares = math.Floor(maxPositionValue / setup.EntryPrice)
		order.SizeReason = "reduced to max position size"
	}
	if m.buyingPower > 0 && shares*setup.EntryPrice > m.buyingPower {
		shares = math.Floor(m.buyingPower / setup.EntryPrice)
		order.SizeReason = "reduced to available buying power"
	}

	// Portfolio risk budget
	budget := m.equity*m.config.MaxPortfolioRiskPercent/100 - m.openRiskLocked()
	if shares*riskPerShare > budget {
		shares = math.Floor(budget / riskPerShare)
		order.SizeReason = "reduced to remaining portfolio risk budget"
	}

	// Sector and correlated exposure ceilings
	if shares > 0 {
		if reduced, reason := m.applyExposureCap(setup.Symbol, setup.EntryPrice, shares); reduced < shares {
			shares = reduced
			order.SizeReason = reason
		}
	}

	if shares <= 0 {
		order.Shares = 0
		if order.SizeReason == "" {
			order.SizeReason = "position size rounded to zero"
		} else {
			order.SizeReason = fmt.Sprintf("rejected: %s", order.SizeReason)
		}
		return order
	}

	order.Shares = shares
	order.RiskAmount = shares * riskPerShare
	order.RiskPercent = order.RiskAmount / m.equity * 100
	order.CanTrade = true
	return order
}

// sizeFactor blends volatility regime, trend strength and RSI extremity into
// a single scaling multiplier.
func (m *Manager) sizeFactor(direction trade.Direction, cond condition.MarketCondition) float64 {
	factor := 1.0

	switch {
	case cond.HistoricalVol > 0 && cond.HistoricalVol < m.config.LowVolThreshold:
		factor *= 1.2
	case cond.HistoricalVol > m.config.HighVolThreshold:
		factor *= 0.7
	}

	switch {
	case cond.TrendStrength > 40:
		factor *= 1.2
	case cond.TrendStrength > 0 && cond.TrendStrength < 20:
		factor *= 0.8
	}

	// Counter-extremity: lighten positions entered against a stretched RSI
	if direction == trade.DirectionLong {
		if cond.RSI > 70 {
			factor *= 0.8
		} else if cond.RSI < 30 {
			factor *= 1.1
		}
	} else {
		if cond.RSI < 30 {
			factor *= 0.8
		} else if cond.RSI > 70 {
			factor *= 1.1
		}
	}

	return factor
}

// applyExposureCap enforces sector and correlated-exposure ceilings, returning
// the allowed share count and the limiting reason when reduced.
func (m *Manager) applyExposureCap(symbol string, entry float64, shares float64) (float64, string) {
	newValue := shares * entry

	if sector, ok := m.sectors[symbol]; ok && m.config.MaxSectorExposurePercent > 0 {
		sectorValue := 0.0
		for sym, pos := range m.positions {
			if m.sectors[sym] == sector {
				sectorValue += pos.Value
			}
		}
		limit := m.equity * m.config.MaxSectorExposurePercent / 100
		if sectorValue+newValue > limit {
			allowed := math.Floor((limit - sectorValue) / entry)
			if allowed < 0 {
				allowed = 0
			}
			return allowed, fmt.Sprintf("sector exposure limit (%s)", sector)
		}
	}

	if peers, ok := m.correlated[symbol]; ok && m.config.MaxCorrelatedExposurePercent > 0 {
		corrValue := 0.0
		for _, peer := range peers {
			if pos, open := m.positions[peer]; open {
				corrValue += pos.Value
			}
		}
		limit := m.equity * m.config.MaxCorrelatedExposurePercent / 100
		if corrValue+newValue > limit {
			allowed := math.Floor((limit - corrValue) / entry)
			if allowed < 0 {
				allowed = 0
			}
			return allowed, "correlated exposure limit"
		}
	}

	return shares, ""
}

// ReserveRisk records the risk allocation of a newly opened position
func (m *Manager) ReserveRisk(symbol string, riskAmount, positionValue float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = openRisk{RiskAmount: riskAmount, Value: positionValue}
}

// ReleaseRisk returns a closed position's risk allocation to the budget
func (m *Manager) ReleaseRisk(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, symbol)
}

// OpenRiskAmount returns the sum of reserved risk across open positions
func (m *Manager) OpenRiskAmount() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openRiskLocked()
}

func (m *Manager) openRiskLocked() float64 {
	total := 0.0
	for _, pos := range m.positions {
		total += pos.RiskAmount
	}
	return total
}

// RegisterTrade increments the daily trade counter. Only accepted,
// non-zero-size trades count.
func (m *Manager) RegisterTrade(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkDailyReset(now)
	m.dailyTrades++
}

// DailyTradeCount returns today's accepted trade count
func (m *Manager) DailyTradeCount(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkDailyReset(now)
	return m.dailyTrades
}

// checkDailyReset zeroes the counter at local calendar-day rollover
func (m *Manager) checkDailyReset(now time.Time) {
	today := now.Truncate(24 * time.Hour)
	if today.After(m.dailyReset) {
		m.dailyTrades = 0
		m.dailyReset = today
	}
}

// Snapshot returns a point-in-time view of the portfolio risk state
func (m *Manager) Snapshot(now time.Time) PortfolioSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := PortfolioSnapshot{
		Timestamp:       now,
		Equity:          m.equity,
		BuyingPower:     m.buyingPower,
		OpenRiskAmount:  m.openRiskLocked(),
		OpenPositions:   len(m.positions),
		DailyTradeCount: m.dailyTrades,
		PositionRisk:    make(map[string]float64, len(m.positions)),
	}
	if m.equity > 0 {
		snap.OpenRiskPercent = snap.OpenRiskAmount / m.equity * 100
	}
	for sym, pos := range m.positions {
		snap.PositionRisk[sym] = pos.RiskAmount
	}
	return snap
}
