// Package gate validates sized orders against structural rules, quality
// filters and a cooldown/rate-limit state machine before anything reaches
// the broker. Rejections name the specific rule that failed.
package gate

import (
	"fmt"
	"sync"
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/indicators"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// Config holds execution gate configuration
type Config struct {
	MinRiskReward          float64 `json:"min_risk_reward"`
	BaseCooldownMinutes    int     `json:"base_cooldown_minutes"`
	MaxTradesPerHour       int     `json:"max_trades_per_hour"`
	MaxTradesPerDay        int     `json:"max_trades_per_day"`
	VolumeThreshold        float64 `json:"volume_threshold"`  // multiple of trailing-20 average
	VolumePeriod           int     `json:"volume_period"`
	MaxSpreadPercent       float64 `json:"max_spread_percent"`
	SessionBlackoutMinutes float64 `json:"session_blackout_minutes"`
}

// DefaultConfig returns gate defaults
func DefaultConfig() Config {
	return Config{
		MinRiskReward:          1.5,
		BaseCooldownMinutes:    15,
		MaxTradesPerHour:       3,
		MaxTradesPerDay:        10,
		VolumeThreshold:        0.8,
		VolumePeriod:           20,
		MaxSpreadPercent:       0.5,
		SessionBlackoutMinutes: 15,
	}
}

// Decision is the gate's verdict on a sized order
type Decision struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

func reject(format string, args ...interface{}) Decision {
	return Decision{Reason: fmt.Sprintf(format, args...)}
}

// Gate owns the process-wide cooldown state. All mutation happens behind its
// mutex so risk-budget and cooldown checks see a consistent snapshot.
type Gate struct {
	mu      sync.Mutex
	config  Config
	state   CooldownState
	session market.Session
}

// NewGate creates an execution gate anchored at now
func NewGate(config Config, session market.Session, now time.Time) *Gate {
	if config.MinRiskReward <= 0 {
		config = DefaultConfig()
	}
	return &Gate{
		config:  config,
		state:   NewCooldownState(now),
		session: session,
	}
}

// State returns a copy of the current cooldown state
func (g *Gate) State() CooldownState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Status reports the cooldown machine's state at now
func (g *Gate) Status(now time.Time) Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Status(now, g.config.MaxTradesPerHour, g.config.MaxTradesPerDay)
}

// Evaluate validates a sized order. It has no side effects: an accepted
// decision must be followed by RecordExecution once the order is actually
// submitted.
func (g *Gate) Evaluate(order trade.SizedOrder, cond condition.MarketCondition, series *market.Series, quote market.Quote, hasOpenPosition bool, now time.Time) Decision {
	// Structural validation first: these are fatal regardless of state
	if d := g.validateStructure(order); !d.Accepted {
		return d
	}

	// One position per symbol, always
	if hasOpenPosition {
		return reject("existing open position for %s", order.Symbol)
	}

	// Cooldown / rate-limit state machine
	g.mu.Lock()
	g.state = g.state.Advance(now)
	status := g.state.Status(now, g.config.MaxTradesPerHour, g.config.MaxTradesPerDay)
	next := g.state.NextAvailableTime
	g.mu.Unlock()

	switch status {
	case StatusRateLimitedHourly:
		return reject("hourly trade limit reached (%d/hour)", g.config.MaxTradesPerHour)
	case StatusRateLimitedDaily:
		return reject("daily trade limit reached (%d/day)", g.config.MaxTradesPerDay)
	case StatusInCooldown:
		return reject("in cooldown until %s", next.Format(time.RFC3339))
	}

	// Quality filters
	if d := g.checkVolume(series); !d.Accepted {
		return d
	}
	if d := g.checkSpread(quote); !d.Accepted {
		return d
	}
	if d := g.checkTimeOfDay(now); !d.Accepted {
		return d
	}

	return Decision{Accepted: true}
}

// RecordExecution transitions the state machine after an accepted order is
// submitted, scaling the cooldown by regime and confidence.
func (g *Gate) RecordExecution(regime condition.Regime, confidence float64, now time.Time) {
	base := time.Duration(g.config.BaseCooldownMinutes) * time.Minute
	cooldown := ScaleCooldown(base, regime, confidence)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = g.state.RecordExecution(now, cooldown)
}

// validateStructure checks the invariants a well-formed order must satisfy
func (g *Gate) validateStructure(order trade.SizedOrder) Decision {
	if order.Symbol == "" {
		return reject("missing symbol")
	}
	if !order.Direction.Valid() {
		return reject("invalid direction %q", order.Direction)
	}
	if order.EntryPrice <= 0 {
		return reject("non-positive entry price")
	}
	if !order.CanTrade || order.Shares <= 0 {
		return reject("order not tradeable: %s", nonEmpty(order.SizeReason, "zero shares"))
	}

	// Stops must sit on the losing side, targets on the winning side
	if order.Direction == trade.DirectionLong {
		if order.StopLoss >= order.EntryPrice {
			return reject("long stop %.4f not below entry %.4f", order.StopLoss, order.EntryPrice)
		}
		if order.ProfitTarget <= order.EntryPrice {
			return reject("long target %.4f not above entry %.4f", order.ProfitTarget, order.EntryPrice)
		}
	} else {
		if order.StopLoss <= order.EntryPrice {
			return reject("short stop %.4f not above entry %.4f", order.StopLoss, order.EntryPrice)
		}
		if order.ProfitTarget >= order.EntryPrice {
			return reject("short target %.4f not below entry %.4f", order.ProfitTarget, order.EntryPrice)
		}
	}

	if order.RiskReward < g.config.MinRiskReward {
		return reject("risk/reward %.2f below minimum %.2f", order.RiskReward, g.config.MinRiskReward)
	}

	return Decision{Accepted: true}
}

// checkVolume requires the current bar's volume to confirm participation.
// Fewer bars than the lookback passes the filter.
func (g *Gate) checkVolume(series *market.Series) Decision {
	if series == nil || series.Len() < g.config.VolumePeriod+1 {
		return Decision{Accepted: true}
	}

	bars := series.Bars
	avg := indicators.CalculateAverageVolume(bars[:len(bars)-1], g.config.VolumePeriod)
	current := bars[len(bars)-1].Volume
	if avg > 0 && current < avg*g.config.VolumeThreshold {
		return reject("volume %.0f below %.1fx trailing average %.0f", current, g.config.VolumeThreshold, avg)
	}

	return Decision{Accepted: true}
}

// checkSpread rejects wide markets; missing quotes pass
func (g *Gate) checkSpread(quote market.Quote) Decision {
	if !quote.HasSpread() {
		return Decision{Accepted: true}
	}
	if spread := quote.SpreadPercent(); spread > g.config.MaxSpreadPercent {
		return reject("spread %.3f%% above ceiling %.3f%%", spread, g.config.MaxSpreadPercent)
	}
	return Decision{Accepted: true}
}

// checkTimeOfDay blacks out the open and close of the session
func (g *Gate) checkTimeOfDay(now time.Time) Decision {
	fromOpen := g.session.MinutesFromOpen(now)
	toClose := g.session.MinutesToClose(now)

	if fromOpen >= 0 && fromOpen < g.config.SessionBlackoutMinutes {
		return reject("within first %.0f minutes of session", g.config.SessionBlackoutMinutes)
	}
	if toClose >= 0 && toClose < g.config.SessionBlackoutMinutes {
		return reject("within last %.0f minutes of session", g.config.SessionBlackoutMinutes)
	}

	return Decision{Accepted: true}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
