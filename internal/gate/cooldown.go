package gate

import (
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
)

// Status represents the cooldown state machine's current state
type Status string

const (
	StatusReady             Status = "READY"
	StatusRateLimitedHourly Status = "RATE_LIMITED_HOURLY"
	StatusRateLimitedDaily  Status = "RATE_LIMITED_DAILY"
	StatusInCooldown        Status = "IN_COOLDOWN"
)

// CooldownState is the rate-limit and cooldown bookkeeping for the gate.
// Transitions are pure functions of (state, now) so they can be unit tested
// without clock mocking.
type CooldownState struct {
	HourlyTradeCount  int       `json:"hourly_trade_count"`
	DailyTradeCount   int       `json:"daily_trade_count"`
	LastHourReset     time.Time `json:"last_hour_reset"`
	LastDayReset      time.Time `json:"last_day_reset"`
	NextAvailableTime time.Time `json:"next_available_time"`
}

// NewCooldownState returns a fresh READY state anchored at now
func NewCooldownState(now time.Time) CooldownState {
	return CooldownState{
		LastHourReset: now.Truncate(time.Hour),
		LastDayReset:  now.Truncate(24 * time.Hour),
	}
}

// Advance applies window resets: the hourly counter clears on each hour
// boundary and the daily counter on each calendar-day boundary, independent
// of the cooldown timer. Counters never go negative and reset exactly once
// per window.
func (s CooldownState) Advance(now time.Time) CooldownState {
	hour := now.Truncate(time.Hour)
	if hour.After(s.LastHourReset) {
		s.HourlyTradeCount = 0
		s.LastHourReset = hour
	}

	day := now.Truncate(24 * time.Hour)
	if day.After(s.LastDayReset) {
		s.DailyTradeCount = 0
		s.LastDayReset = day
	}

	return s
}

// Status reports the machine's state at now, after window resets
func (s CooldownState) Status(now time.Time, maxPerHour, maxPerDay int) Status {
	s = s.Advance(now)

	if maxPerDay > 0 && s.DailyTradeCount >= maxPerDay {
		return StatusRateLimitedDaily
	}
	if maxPerHour > 0 && s.HourlyTradeCount >= maxPerHour {
		return StatusRateLimitedHourly
	}
	if now.Before(s.NextAvailableTime) {
		return StatusInCooldown
	}
	return StatusReady
}

// RecordExecution counts an accepted trade and starts the cooldown timer
func (s CooldownState) RecordExecution(now time.Time, cooldown time.Duration) CooldownState {
	s = s.Advance(now)
	s.HourlyTradeCount++
	s.DailyTradeCount++
	s.NextAvailableTime = now.Add(cooldown)
	return s
}

// ScaleCooldown adjusts the base cooldown by regime and setup confidence.
// Trending markets shorten the wait, choppy markets lengthen it; high
// conviction shortens it slightly, low conviction lengthens it.
func ScaleCooldown(base time.Duration, regime condition.Regime, confidence float64) time.Duration {
	scaled := float64(base)

	switch regime {
	case condition.RegimeTrend:
		scaled *= 0.8
	case condition.RegimeChoppy:
		scaled *= 1.5
	}

	if confidence >= 0.8 {
		scaled *= 0.9
	} else if confidence < 0.4 {
		scaled *= 1.5
	}

	return time.Duration(scaled)
}
