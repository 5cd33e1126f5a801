// Package condition classifies a bar series into a market regime and the
// indicator readings downstream components consume. Classification is a pure
// function of (series, now, config) and never blocks the pipeline: any
// computation failure degrades to a neutral condition.
package condition

import (
	"math"
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/indicators"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
)

// Regime classifies current market behavior
type Regime string

const (
	RegimeTrend   Regime = "TREND"
	RegimeChoppy  Regime = "CHOPPY"
	RegimeNoTrade Regime = "NO_TRADE"
)

// TrendDirection represents the dominant price direction
type TrendDirection string

const (
	TrendBullish  TrendDirection = "bullish"
	TrendBearish  TrendDirection = "bearish"
	TrendSideways TrendDirection = "sideways"
)

// MarketCondition holds the regime label and indicator readings derived fresh
// each cycle from a bar series. It is never persisted as source of truth.
type MarketCondition struct {
	Symbol           string                 `json:"symbol"`
	Regime           Regime                 `json:"regime"`
	ATR              float64                `json:"atr"`
	HistoricalVol    float64                `json:"historical_vol"`
	TrendDirection   TrendDirection         `json:"trend_direction"`
	TrendStrength    float64                `json:"trend_strength"` // 0-100, ADX scale
	RSI              float64                `json:"rsi"`
	MACD             indicators.MACDResult  `json:"macd"`
	VolumeRatio      float64                `json:"volume_ratio"`
	SupportLevels    []float64              `json:"support_levels,omitempty"`
	ResistanceLevels []float64              `json:"resistance_levels,omitempty"`
	EvaluatedAt      time.Time              `json:"evaluated_at"`
}

// Config holds classifier thresholds
type Config struct {
	ATRPeriod              int     `json:"atr_period"`
	RSIPeriod              int     `json:"rsi_period"`
	ADXPeriod              int     `json:"adx_period"`
	VolatilityPeriod       int     `json:"volatility_period"`
	VolumePeriod           int     `json:"volume_period"`
	SwingLookback          int     `json:"swing_lookback"`
	LevelTolerance         float64 `json:"level_tolerance"`           // fractional cluster tolerance
	TrendStrengthThreshold float64 `json:"trend_strength_threshold"`  // ADX floor for TREND
	ClosePlacementMin      float64 `json:"close_placement_min"`       // close position in bar range for directional conviction
	MinVolumeRatio         float64 `json:"min_volume_ratio"`          // below this, NO_TRADE
	MinVolatility          float64 `json:"min_volatility"`            // annualized vol floor, below this NO_TRADE
	TrendVolumeBaseline    float64 `json:"trend_volume_baseline"`     // volume ratio needed to confirm TREND
	EnforceSession         bool    `json:"enforce_session"`
}

// DefaultConfig returns classifier defaults
func DefaultConfig() Config {
	return Config{
		ATRPeriod:              14,
		RSIPeriod:              14,
		ADXPeriod:              14,
		VolatilityPeriod:       20,
		VolumePeriod:           20,
		SwingLookback:          5,
		LevelTolerance:         0.01,
		TrendStrengthThreshold: 25,
		ClosePlacementMin:      0.6,
		MinVolumeRatio:         0.3,
		MinVolatility:          0.05,
		TrendVolumeBaseline:    1.0,
		EnforceSession:         true,
	}
}

// Classifier turns bar series into MarketCondition values
type Classifier struct {
	config  Config
	session market.Session
}

// NewClassifier creates a classifier with the given thresholds and session
func NewClassifier(cfg Config, session market.Session) *Classifier {
	if cfg.ATRPeriod <= 0 {
		cfg = DefaultConfig()
	}
	return &Classifier{config: cfg, session: session}
}

// minBars is the smallest series the classifier will work with; the slow MA
// and ADX smoothing need the most history.
func (c *Classifier) minBars() int {
	min := 2*c.config.ADXPeriod + 1
	if v := c.config.VolatilityPeriod + 1; v > min {
		min = v
	}
	if 51 > min {
		min = 51
	}
	return min
}

// neutral returns the fixed fallback condition used whenever classification
// cannot complete.
func (c *Classifier) neutral(symbol string, now time.Time) MarketCondition {
	return MarketCondition{
		Symbol:         symbol,
		Regime:         RegimeNoTrade,
		TrendDirection: TrendSideways,
		RSI:            50,
		VolumeRatio:    1,
		EvaluatedAt:    now,
	}
}

// Classify derives the market condition for one symbol. Idempotent: the same
// series and clock always produce the same output.
func (c *Classifier) Classify(series *market.Series, now time.Time) MarketCondition {
	if series == nil || series.Len() < c.minBars() {
		symbol := ""
		if series != nil {
			symbol = series.Symbol
		}
		return c.neutral(symbol, now)
	}

	bars := series.Bars
	cond := MarketCondition{
		Symbol:      series.Symbol,
		EvaluatedAt: now,
	}

	cond.ATR = indicators.CalculateATR(bars, c.config.ATRPeriod)
	cond.HistoricalVol = indicators.CalculateHistoricalVolatility(bars, c.config.VolatilityPeriod)
	cond.RSI = indicators.CalculateRSI(bars, c.config.RSIPeriod)
	cond.MACD = indicators.CalculateMACD(bars, 12, 26, 9)
	cond.TrendStrength = indicators.CalculateADX(bars, c.config.ADXPeriod)
	cond.VolumeRatio = indicators.CalculateVolumeRatio(bars, c.config.VolumePeriod)
	cond.SupportLevels, cond.ResistanceLevels = indicators.FindSupportResistance(bars, c.config.SwingLookback, c.config.LevelTolerance)

	if hasInvalid(cond.ATR, cond.HistoricalVol, cond.RSI, cond.TrendStrength, cond.VolumeRatio) {
		return c.neutral(series.Symbol, now)
	}

	cond.TrendDirection = c.trendDirection(bars)
	cond.Regime = c.regime(bars, &cond, now)

	return cond
}

// trendDirection uses the 10/50 EMA relationship, sideways when they sit
// within half a percent of each other.
func (c *Classifier) trendDirection(bars []market.Bar) TrendDirection {
	fast := indicators.CalculateEMA(bars, 10)
	slow := indicators.CalculateEMA(bars, 50)
	if slow == 0 {
		return TrendSideways
	}

	diff := math.Abs(fast-slow) / slow * 100
	if diff < 0.5 {
		return TrendSideways
	}
	if fast > slow {
		return TrendBullish
	}
	return TrendBearish
}

func (c *Classifier) regime(bars []market.Bar, cond *MarketCondition, now time.Time) Regime {
	// Dead tape or a closed session means no trading at all
	if cond.VolumeRatio < c.config.MinVolumeRatio {
		return RegimeNoTrade
	}
	if cond.HistoricalVol < c.config.MinVolatility {
		return RegimeNoTrade
	}
	if c.config.EnforceSession && !c.session.Contains(now) {
		return RegimeNoTrade
	}

	if cond.TrendStrength >= c.config.TrendStrengthThreshold &&
		cond.TrendDirection != TrendSideways &&
		c.closeIsDirectional(bars, cond.TrendDirection) &&
		cond.VolumeRatio >= c.config.TrendVolumeBaseline {
		return RegimeTrend
	}

	return RegimeChoppy
}

// closeIsDirectional checks that the latest close sits in the directional end
// of the bar's range: near the high for bullish trends, near the low for
// bearish ones.
func (c *Classifier) closeIsDirectional(bars []market.Bar, dir TrendDirection) bool {
	last := bars[len(bars)-1]
	span := last.High - last.Low
	if span <= 0 {
		return false
	}

	placement := (last.Close - last.Low) / span
	switch dir {
	case TrendBullish:
		return placement >= c.config.ClosePlacementMin
	case TrendBearish:
		return placement <= 1-c.config.ClosePlacementMin
	default:
		return false
	}
}

func hasInvalid(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}
