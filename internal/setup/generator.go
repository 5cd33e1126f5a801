// Package setup proposes candidate trades from the market condition and the
// institutional flow signal. Setups are unsized; the risk manager and the
// execution gate decide whether and how large they trade.
package setup

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/flow"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/indicators"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/risk"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// Config holds setup generation thresholds
type Config struct {
	FastMAPeriod          int     `json:"fast_ma_period"`
	SlowMAPeriod          int     `json:"slow_ma_period"`
	MABufferPercent       float64 `json:"ma_buffer_percent"`       // crossover must clear this gap
	EntryOffsetPercent    float64 `json:"entry_offset_percent"`    // offset from current price
	ReversionMAPeriod     int     `json:"reversion_ma_period"`
	MinDeviationPercent   float64 `json:"min_deviation_percent"`   // mean reversion trigger
	FlowContradictionBar  float64 `json:"flow_contradiction_bar"`  // |signal| that vetoes a trend setup
	FlowAgreementBonus    float64 `json:"flow_agreement_bonus"`    // confidence swing for flow agreement
}

// DefaultConfig returns generator defaults
func DefaultConfig() Config {
	return Config{
		FastMAPeriod:         10,
		SlowMAPeriod:         50,
		MABufferPercent:      0.1,
		EntryOffsetPercent:   0.05,
		ReversionMAPeriod:    20,
		MinDeviationPercent:  2.0,
		FlowContradictionBar: 0.7,
		FlowAgreementBonus:   0.2,
	}
}

// Generator produces trade setups per symbol per cycle
type Generator struct {
	config   Config
	riskCfg  risk.Config
}

// NewGenerator creates a setup generator. The risk config supplies stop and
// target placement parameters.
func NewGenerator(cfg Config, riskCfg risk.Config) *Generator {
	if cfg.FastMAPeriod <= 0 {
		cfg = DefaultConfig()
	}
	return &Generator{config: cfg, riskCfg: riskCfg}
}

// Generate proposes zero or more setups for a symbol. NO_TRADE regimes and
// symbols without a qualifying trend or deviation produce none.
func (g *Generator) Generate(cond condition.MarketCondition, sig flow.Signal, series *market.Series, now time.Time) []trade.Setup {
	if series == nil || series.Len() == 0 {
		return nil
	}

	switch cond.Regime {
	case condition.RegimeTrend:
		if s := g.trendSetup(cond, sig, series, now); s != nil {
			return []trade.Setup{*s}
		}
	case condition.RegimeChoppy:
		if s := g.reversionSetup(cond, sig, series, now); s != nil {
			return []trade.Setup{*s}
		}
	}

	return nil
}

// trendSetup builds a trend-following setup from the MA crossover direction
func (g *Generator) trendSetup(cond condition.MarketCondition, sig flow.Signal, series *market.Series, now time.Time) *trade.Setup {
	bars := series.Bars
	fast := indicators.CalculateEMA(bars, g.config.FastMAPeriod)
	slow := indicators.CalculateEMA(bars, g.config.SlowMAPeriod)
	price := series.LastClose()
	if fast == 0 || slow == 0 || price <= 0 {
		return nil
	}

	gap := (fast - slow) / slow * 100
	var direction trade.Direction
	switch {
	case gap > g.config.MABufferPercent:
		direction = trade.DirectionLong
	case gap < -g.config.MABufferPercent:
		direction = trade.DirectionShort
	default:
		return nil // crossover too shallow to trust
	}

	// Strong institutional flow against the trend vetoes the setup
	if math.Abs(sig.Combined) > g.config.FlowContradictionBar && flowOpposes(sig.Combined, direction) {
		return nil
	}

	entry := g.offsetEntry(price, direction)
	stop := risk.CalculateStopLoss(entry, direction, cond.ATR, g.riskCfg.TrendATRMultiplier, g.riskCfg.FallbackStopPercent)

	levels := cond.ResistanceLevels
	if direction == trade.DirectionShort {
		levels = cond.SupportLevels
	}
	target := risk.CalculateProfitTarget(entry, stop, direction, g.riskCfg.TargetRiskReward, levels)

	reasons := []string{
		fmt.Sprintf("%s MA crossover gap %.2f%%", direction, gap),
		fmt.Sprintf("trend strength %.1f", cond.TrendStrength),
	}

	confidence := 0.5
	if cond.TrendStrength > 40 {
		confidence += 0.1
		reasons = append(reasons, "strong trend")
	}
	confidence += g.flowAdjustment(sig, direction, &reasons)
	confidence += volatilityAdjustment(cond, g.riskCfg)

	return g.finalize(trade.Setup{
		Symbol:       cond.Symbol,
		Direction:    direction,
		EntryPrice:   entry,
		StopLoss:     stop,
		ProfitTarget: target,
		SetupType:    trade.SetupTrendFollowing,
		Confidence:   clamp01(confidence),
		GeneratedAt:  now,
	}, reasons)
}

// reversionSetup builds a mean-reversion setup when price is stretched away
// from its moving average.
func (g *Generator) reversionSetup(cond condition.MarketCondition, sig flow.Signal, series *market.Series, now time.Time) *trade.Setup {
	bars := series.Bars
	ma := indicators.CalculateSMA(bars, g.config.ReversionMAPeriod)
	price := series.LastClose()
	if ma == 0 || price <= 0 {
		return nil
	}

	deviation := (price - ma) / ma * 100
	if math.Abs(deviation) < g.config.MinDeviationPercent {
		return nil
	}

	// Revert toward the mean: stretched above -> short, below -> long
	direction := trade.DirectionLong
	if deviation > 0 {
		direction = trade.DirectionShort
	}

	entry := g.offsetEntry(price, direction)
	stop := risk.CalculateStopLoss(entry, direction, cond.ATR, g.riskCfg.ATRStopMultiplier, g.riskCfg.FallbackStopPercent)
	target := risk.CalculateProfitTarget(entry, stop, direction, g.riskCfg.TargetRiskReward, nil)

	// The moving average is the natural magnet; do not aim past it
	if direction == trade.DirectionLong && ma < target {
		target = ma
	} else if direction == trade.DirectionShort && ma > target {
		target = ma
	}

	reasons := []string{
		fmt.Sprintf("price %.2f%% from %d-period MA", deviation, g.config.ReversionMAPeriod),
	}

	confidence := 0.4
	if math.Abs(deviation) > g.config.MinDeviationPercent*1.5 {
		confidence += 0.1
		reasons = append(reasons, "extended deviation")
	}
	confidence += g.flowAdjustment(sig, direction, &reasons)
	confidence += volatilityAdjustment(cond, g.riskCfg)

	return g.finalize(trade.Setup{
		Symbol:       cond.Symbol,
		Direction:    direction,
		EntryPrice:   entry,
		StopLoss:     stop,
		ProfitTarget: target,
		SetupType:    trade.SetupMeanReversion,
		Confidence:   clamp01(confidence),
		GeneratedAt:  now,
	}, reasons)
}

// offsetEntry shifts the entry a small fraction from the current price in the
// safer direction: below price for longs, above for shorts.
func (g *Generator) offsetEntry(price float64, direction trade.Direction) float64 {
	offset := price * g.config.EntryOffsetPercent / 100
	if direction == trade.DirectionShort {
		return price + offset
	}
	return price - offset
}

// flowAdjustment nudges confidence by the agreement bonus when institutional
// flow confirms the direction, and subtracts it on disagreement.
func (g *Generator) flowAdjustment(sig flow.Signal, direction trade.Direction, reasons *[]string) float64 {
	if !sig.HasSignificantFlow {
		return 0
	}
	if flowOpposes(sig.Combined, direction) {
		*reasons = append(*reasons, fmt.Sprintf("institutional flow disagrees (%.2f)", sig.Combined))
		return -g.config.FlowAgreementBonus
	}
	*reasons = append(*reasons, fmt.Sprintf("institutional flow agrees (%.2f)", sig.Combined))
	return g.config.FlowAgreementBonus
}

// volatilityAdjustment rewards calm tape and penalizes violent tape
func volatilityAdjustment(cond condition.MarketCondition, riskCfg risk.Config) float64 {
	switch {
	case cond.HistoricalVol > riskCfg.HighVolThreshold:
		return -0.1
	case cond.HistoricalVol > 0 && cond.HistoricalVol < riskCfg.LowVolThreshold:
		return 0.05
	default:
		return 0
	}
}

// finalize computes risk/reward, assembles the rationale and validates the
// geometry of the setup.
func (g *Generator) finalize(s trade.Setup, reasons []string) *trade.Setup {
	riskDist := s.RiskDistance()
	if riskDist <= 0 {
		return nil
	}

	reward := s.ProfitTarget - s.EntryPrice
	if s.Direction == trade.DirectionShort {
		reward = s.EntryPrice - s.ProfitTarget
	}
	if reward <= 0 {
		return nil
	}

	s.RiskReward = reward / riskDist
	s.Rationale = strings.Join(reasons, "; ")
	return &s
}

func flowOpposes(signal float64, direction trade.Direction) bool {
	if direction == trade.DirectionLong {
		return signal < 0
	}
	return signal > 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
