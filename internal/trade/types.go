// Package trade defines the trade entities that flow through the decision
// pipeline: candidate setups, sized orders, open positions and closed trades.
package trade

import "time"

// Direction represents the side of a trade
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Valid reports whether the direction is one of the known sides
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// SetupType identifies which strategy produced a setup
type SetupType string

const (
	SetupTrendFollowing SetupType = "trend_following"
	SetupMeanReversion  SetupType = "mean_reversion"
)

// Exit reasons recorded on closed trades
const (
	ExitReasonStopLoss     = "stop_loss"
	ExitReasonProfitTarget = "profit_target"
	ExitReasonSignal       = "exit_signal"
	ExitReasonTrailingStop = "trailing_stop"
)

// Setup is a candidate trade proposal prior to sizing and gating
type Setup struct {
	Symbol       string    `json:"symbol"`
	Direction    Direction `json:"direction"`
	EntryPrice   float64   `json:"entry_price"`
	StopLoss     float64   `json:"stop_loss"`
	ProfitTarget float64   `json:"profit_target"`
	PositionSize float64   `json:"position_size"` // pre-risk-adjustment notional hint
	SetupType    SetupType `json:"setup_type"`
	Confidence   float64   `json:"confidence"` // 0-1
	RiskReward   float64   `json:"risk_reward"`
	Rationale    string    `json:"rationale"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// RiskDistance returns the absolute distance between entry and stop
func (s *Setup) RiskDistance() float64 {
	d := s.EntryPrice - s.StopLoss
	if d < 0 {
		d = -d
	}
	return d
}

// SizedOrder is a setup after risk-manager sizing
type SizedOrder struct {
	Setup
	Shares      float64 `json:"shares"`
	RiskAmount  float64 `json:"risk_amount"`
	RiskPercent float64 `json:"risk_percent"`
	CanTrade    bool    `json:"can_trade"`
	SizeReason  string  `json:"size_reason,omitempty"` // populated when sizing reduced or rejected the trade
}

// Position is an open position tracked by the lifecycle manager
type Position struct {
	ID               string    `json:"id"`
	Symbol           string    `json:"symbol"`
	Direction        Direction `json:"direction"`
	EntryPrice       float64   `json:"entry_price"`
	CurrentPrice     float64   `json:"current_price"`
	Quantity         float64   `json:"quantity"`
	StopLoss         float64   `json:"stop_loss"`
	ProfitTarget     float64   `json:"profit_target"`
	EntryTime        time.Time `json:"entry_time"`
	UnrealizedPnL    float64   `json:"unrealized_pnl"`
	UnrealizedPnLPct float64   `json:"unrealized_pnl_pct"`
}

// ClosedTrade is the immutable record emitted when a position exits
type ClosedTrade struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Direction      Direction `json:"direction"`
	EntryPrice     float64   `json:"entry_price"`
	ExitPrice      float64   `json:"exit_price"`
	Quantity       float64   `json:"quantity"`
	EntryTime      time.Time `json:"entry_time"`
	ExitTime       time.Time `json:"exit_time"`
	RealizedPnL    float64   `json:"realized_pnl"`
	RealizedPnLPct float64   `json:"realized_pnl_pct"`
	ExitReason     string    `json:"exit_reason"`
}
