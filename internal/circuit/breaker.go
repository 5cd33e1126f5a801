// Package circuit halts new entries after a losing streak or an excessive
// daily drawdown. It sits in front of the execution gate: an open breaker
// rejects every setup until the cooldown passes and a winning close confirms
// recovery.
package circuit

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// State is the breaker's position in its recovery cycle
type State string

const (
	StateClosed   State = "CLOSED"    // normal operation
	StateOpen     State = "OPEN"      // entries halted
	StateHalfOpen State = "HALF_OPEN" // cooldown passed, awaiting a winning close
)

// Config holds the breaker thresholds
type Config struct {
	Enabled              bool    `json:"enabled"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
	MaxDailyLossPercent  float64 `json:"max_daily_loss_percent"` // sum of losing closes, percent of entry value
	CooldownMinutes      int     `json:"cooldown_minutes"`
}

// DefaultConfig returns conservative thresholds
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		MaxConsecutiveLosses: 4,
		MaxDailyLossPercent:  6.0,
		CooldownMinutes:      60,
	}
}

// Breaker tracks realized losses and halts entries past the configured
// thresholds. All methods take the evaluation time explicitly so behavior is
// reproducible in tests.
type Breaker struct {
	cfg Config

	mu                sync.Mutex
	state             State
	consecutiveLosses int
	dailyLossPct      float64
	dailyReset        time.Time
	trippedAt         time.Time
	tripReason        string
	onTrip            func(reason string)
	onRecover         func()
}

// NewBreaker creates a breaker in the closed state
func NewBreaker(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: StateClosed}
}

// OnTrip registers a callback invoked when the breaker opens
func (b *Breaker) OnTrip(fn func(reason string)) {
	b.mu.Lock()
	b.onTrip = fn
	b.mu.Unlock()
}

// OnRecover registers a callback invoked when the breaker closes again
func (b *Breaker) OnRecover(fn func()) {
	b.mu.Lock()
	b.onRecover = fn
	b.mu.Unlock()
}

// Allow reports whether new entries are permitted at now. An open breaker
// moves to half-open once the cooldown has elapsed, which permits a single
// probing entry.
func (b *Breaker) Allow(now time.Time) (bool, string) {
	if !b.cfg.Enabled {
		return true, ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollDay(now)

	if b.state == StateOpen {
		cooldown := time.Duration(b.cfg.CooldownMinutes) * time.Minute
		elapsed := now.Sub(b.trippedAt)
		if elapsed < cooldown {
			remaining := (cooldown - elapsed).Round(time.Second)
			return false, fmt.Sprintf("circuit breaker open for %s more (%s)", remaining, b.tripReason)
		}
		b.state = StateHalfOpen
	}

	return true, ""
}

// RecordClose feeds a realized close into the breaker. pnlPercent is the
// trade's realized P&L as a percent of entry value. A winning close while
// half-open returns the breaker to closed.
func (b *Breaker) RecordClose(pnlPercent float64, now time.Time) {
	if !b.cfg.Enabled {
		return
	}
	if math.IsNaN(pnlPercent) || math.IsInf(pnlPercent, 0) {
		return
	}

	b.mu.Lock()
	b.rollDay(now)

	if pnlPercent < 0 {
		b.consecutiveLosses++
		b.dailyLossPct += -pnlPercent
	} else {
		b.consecutiveLosses = 0
		if b.state == StateHalfOpen {
			b.state = StateClosed
			fn := b.onRecover
			b.mu.Unlock()
			if fn != nil {
				fn()
			}
			return
		}
	}

	var reason string
	switch {
	case b.cfg.MaxConsecutiveLosses > 0 && b.consecutiveLosses >= b.cfg.MaxConsecutiveLosses:
		reason = fmt.Sprintf("%d consecutive losing trades", b.consecutiveLosses)
	case b.cfg.MaxDailyLossPercent > 0 && b.dailyLossPct >= b.cfg.MaxDailyLossPercent:
		reason = fmt.Sprintf("daily realized loss %.2f%% reached the %.2f%% limit", b.dailyLossPct, b.cfg.MaxDailyLossPercent)
	}

	if reason == "" || b.state == StateOpen {
		b.mu.Unlock()
		return
	}

	b.state = StateOpen
	b.trippedAt = now
	b.tripReason = reason
	fn := b.onTrip
	b.mu.Unlock()

	if fn != nil {
		fn(reason)
	}
}

// Reset manually closes the breaker and clears its counters
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.state = StateClosed
	b.consecutiveLosses = 0
	b.dailyLossPct = 0
	b.tripReason = ""
	fn := b.onRecover
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// State returns the breaker state as of now
func (b *Breaker) State(now time.Time) State {
	if !b.cfg.Enabled {
		return StateClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && now.Sub(b.trippedAt) >= time.Duration(b.cfg.CooldownMinutes)*time.Minute {
		return StateHalfOpen
	}
	return b.state
}

// Stats reports the breaker counters for the status API
func (b *Breaker) Stats(now time.Time) map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.state
	if !b.cfg.Enabled {
		state = StateClosed
	} else if b.state == StateOpen && now.Sub(b.trippedAt) >= time.Duration(b.cfg.CooldownMinutes)*time.Minute {
		state = StateHalfOpen
	}

	return map[string]interface{}{
		"enabled":            b.cfg.Enabled,
		"state":              string(state),
		"consecutive_losses": b.consecutiveLosses,
		"daily_loss_pct":     b.dailyLossPct,
		"trip_reason":        b.tripReason,
	}
}

// rollDay clears the daily loss accumulator at the day boundary.
// Caller holds the lock.
func (b *Breaker) rollDay(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if day.After(b.dailyReset) {
		b.dailyReset = day
		b.dailyLossPct = 0
	}
}
