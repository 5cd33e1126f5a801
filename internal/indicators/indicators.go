// Package indicators provides the pure numeric calculations consumed by the
// market condition classifier and the trade setup generator. Every function
// degrades to a neutral value when the series is shorter than its lookback.
package indicators

import (
	"math"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// CalculateSMA calculates Simple Moving Average over the last period bars
func CalculateSMA(bars []market.Bar, period int) float64 {
	if len(bars) < period || period <= 0 {
		return 0
	}

	sum := 0.0
	startIdx := len(bars) - period

	for i := startIdx; i < len(bars); i++ {
		sum += bars[i].Close
	}

	return sum / float64(period)
}

// CalculateEMA calculates Exponential Moving Average
func CalculateEMA(bars []market.Bar, period int) float64 {
	if len(bars) < period || period <= 0 {
		return 0
	}

	// Seed with SMA of the first period bars
	sma := CalculateSMA(bars[:period], period)
	multiplier := 2.0 / float64(period+1)

	ema := sma
	for i := period; i < len(bars); i++ {
		ema = (bars[i].Close * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// emaSeries returns the full EMA series over values, seeded with an SMA
func emaSeries(values []float64, period int) []float64 {
	if len(values) < period || period <= 0 {
		return nil
	}

	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out = append(out, ema)

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i] * multiplier) + (ema * (1 - multiplier))
		out = append(out, ema)
	}
	return out
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// CalculateRSI calculates the Relative Strength Index
func CalculateRSI(bars []market.Bar, period int) float64 {
	if len(bars) < period+1 || period <= 0 {
		return 50.0 // Neutral RSI
	}

	gains := 0.0
	losses := 0.0

	for i := len(bars) - period; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// MACD (Moving Average Convergence Divergence)
// ============================================================================

// MACDResult holds MACD indicator values
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// CalculateMACD calculates the MACD line, signal line and histogram.
// The signal line is an EMA of the MACD line history, not an approximation.
func CalculateMACD(bars []market.Bar, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if len(bars) < slowPeriod+signalPeriod {
		return MACDResult{}
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	fast := emaSeries(closes, fastPeriod)
	slow := emaSeries(closes, slowPeriod)
	if fast == nil || slow == nil {
		return MACDResult{}
	}

	// Align the two series on their tails and build the MACD line history
	n := len(slow)
	macdLine := make([]float64, n)
	fastTail := fast[len(fast)-n:]
	for i := 0; i < n; i++ {
		macdLine[i] = fastTail[i] - slow[i]
	}

	signal := emaSeries(macdLine, signalPeriod)
	if signal == nil {
		return MACDResult{}
	}

	macd := macdLine[len(macdLine)-1]
	sig := signal[len(signal)-1]

	return MACDResult{
		MACD:      macd,
		Signal:    sig,
		Histogram: macd - sig,
	}
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// CalculateATR calculates Average True Range
func CalculateATR(bars []market.Bar, period int) float64 {
	if len(bars) < period+1 || period <= 0 {
		return 0
	}

	trSum := 0.0
	startIdx := len(bars) - period

	for i := startIdx; i < len(bars); i++ {
		high := bars[i].High
		low := bars[i].Low
		prevClose := bars[i-1].Close

		tr := math.Max(
			high-low,
			math.Max(
				math.Abs(high-prevClose),
				math.Abs(low-prevClose),
			),
		)

		trSum += tr
	}

	return trSum / float64(period)
}

// ============================================================================
// ADX (Average Directional Index)
// ============================================================================

// CalculateADX calculates the Average Directional Index from smoothed
// +DI/-DI over the lookback. Returns 0 on insufficient data.
func CalculateADX(bars []market.Bar, period int) float64 {
	if len(bars) < 2*period+1 || period <= 0 {
		return 0
	}

	var dxSum float64
	var dxCount int

	// Walk a rolling window so the DX values get a crude smoothing pass
	for end := len(bars) - period; end <= len(bars); end++ {
		start := end - period
		if start < 1 {
			continue
		}

		var plusDM, minusDM, trSum float64
		for i := start; i < end; i++ {
			upMove := bars[i].High - bars[i-1].High
			downMove := bars[i-1].Low - bars[i].Low

			if upMove > downMove && upMove > 0 {
				plusDM += upMove
			}
			if downMove > upMove && downMove > 0 {
				minusDM += downMove
			}

			tr := math.Max(
				bars[i].High-bars[i].Low,
				math.Max(
					math.Abs(bars[i].High-bars[i-1].Close),
					math.Abs(bars[i].Low-bars[i-1].Close),
				),
			)
			trSum += tr
		}

		if trSum == 0 {
			continue
		}

		plusDI := (plusDM / trSum) * 100
		minusDI := (minusDM / trSum) * 100
		if plusDI+minusDI == 0 {
			continue
		}

		dx := math.Abs(plusDI-minusDI) / (plusDI + minusDI) * 100
		dxSum += dx
		dxCount++
	}

	if dxCount == 0 {
		return 0
	}

	adx := dxSum / float64(dxCount)
	if adx > 100 {
		adx = 100
	}
	return adx
}

// ============================================================================
// VOLATILITY
// ============================================================================

// CalculateHistoricalVolatility returns the annualized standard deviation of
// log returns over the lookback, assuming 252 trading periods per year.
func CalculateHistoricalVolatility(bars []market.Bar, period int) float64 {
	if len(bars) < period+1 || period <= 1 {
		return 0
	}

	returns := make([]float64, 0, period)
	for i := len(bars) - period; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 || bars[i].Close <= 0 {
			return 0
		}
		returns = append(returns, math.Log(bars[i].Close/prev))
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns) - 1)

	return math.Sqrt(variance) * math.Sqrt(252)
}

// ============================================================================
// VOLUME ANALYSIS
// ============================================================================

// CalculateAverageVolume calculates average volume over a period
func CalculateAverageVolume(bars []market.Bar, period int) float64 {
	if len(bars) == 0 {
		return 0
	}
	if len(bars) < period {
		period = len(bars)
	}

	sum := 0.0
	startIdx := len(bars) - period

	for i := startIdx; i < len(bars); i++ {
		sum += bars[i].Volume
	}

	return sum / float64(period)
}

// CalculateVolumeRatio returns current-bar volume relative to the trailing
// average of the prior period bars. Returns 1 (neutral) on insufficient data.
func CalculateVolumeRatio(bars []market.Bar, period int) float64 {
	if len(bars) < period+1 {
		return 1.0
	}

	avg := CalculateAverageVolume(bars[:len(bars)-1], period)
	if avg == 0 {
		return 1.0
	}

	return bars[len(bars)-1].Volume / avg
}

// ============================================================================
// PRICE CORRELATION
// ============================================================================

// CalculatePriceTrendCorrelation returns the Pearson correlation of close
// prices against bar index over the last period bars, a short-horizon
// directional measure in [-1, 1].
func CalculatePriceTrendCorrelation(bars []market.Bar, period int) float64 {
	if len(bars) < period || period < 2 {
		return 0
	}

	window := bars[len(bars)-period:]
	n := float64(period)

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i, b := range window {
		x := float64(i)
		y := b.Close
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}

	num := n*sumXY - sumX*sumY
	den := math.Sqrt(n*sumXX-sumX*sumX) * math.Sqrt(n*sumYY-sumY*sumY)
	if den == 0 {
		return 0
	}

	corr := num / den
	if math.IsNaN(corr) {
		return 0
	}
	return corr
}

// ============================================================================
// SUPPORT AND RESISTANCE
// ============================================================================

// SwingPoint represents a significant local price extreme
type SwingPoint struct {
	Price    float64
	BarIndex int
	Type     string // "high" or "low"
}

// FindSwingHighs identifies local-maximum swing points over a lookback window
func FindSwingHighs(bars []market.Bar, lookback int) []SwingPoint {
	var swings []SwingPoint

	for i := lookback; i < len(bars)-lookback; i++ {
		isSwing := true
		high := bars[i].High

		for j := i - lookback; j <= i+lookback; j++ {
			if j != i && bars[j].High >= high {
				isSwing = false
				break
			}
		}

		if isSwing {
			swings = append(swings, SwingPoint{Price: high, BarIndex: i, Type: "high"})
		}
	}

	return swings
}

// FindSwingLows identifies local-minimum swing points over a lookback window
func FindSwingLows(bars []market.Bar, lookback int) []SwingPoint {
	var swings []SwingPoint

	for i := lookback; i < len(bars)-lookback; i++ {
		isSwing := true
		low := bars[i].Low

		for j := i - lookback; j <= i+lookback; j++ {
			if j != i && bars[j].Low <= low {
				isSwing = false
				break
			}
		}

		if isSwing {
			swings = append(swings, SwingPoint{Price: low, BarIndex: i, Type: "low"})
		}
	}

	return swings
}

// ClusterLevels merges swing prices lying within tolerance (fractional, e.g.
// 0.01 for 1%) into averaged levels.
func ClusterLevels(swings []SwingPoint, tolerance float64) []float64 {
	if len(swings) == 0 {
		return nil
	}

	var levels []float64
	for _, swing := range swings {
		found := false
		for i, level := range levels {
			if level > 0 && math.Abs(swing.Price-level)/level < tolerance {
				levels[i] = (level + swing.Price) / 2
				found = true
				break
			}
		}
		if !found {
			levels = append(levels, swing.Price)
		}
	}

	return levels
}

// FindSupportResistance extracts clustered support and resistance levels from
// local extrema. Swing lows become supports, swing highs resistances.
func FindSupportResistance(bars []market.Bar, lookback int, tolerance float64) (supports, resistances []float64) {
	if len(bars) < lookback*2+1 {
		return nil, nil
	}
	supports = ClusterLevels(FindSwingLows(bars, lookback), tolerance)
	resistances = ClusterLevels(FindSwingHighs(bars, lookback), tolerance)
	return supports, resistances
}
