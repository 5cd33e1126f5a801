package risk

import (
	"math"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// CalculateStopLoss places a stop at ATR times multiplier away from entry,
// below entry for longs and above for shorts. When ATR is unavailable the
// stop falls back to a fixed percentage distance.
func CalculateStopLoss(entry float64, direction trade.Direction, atr, atrMultiplier, fallbackPercent float64) float64 {
	if entry <= 0 {
		return 0
	}

	distance := atr * atrMultiplier
	if atr <= 0 || distance <= 0 {
		distance = entry * fallbackPercent / 100
	}

	if direction == trade.DirectionShort {
		return entry + distance
	}
	return entry - distance
}

// CalculateProfitTarget derives the target from the risk distance times the
// requested risk/reward ratio. When a support/resistance level sits between
// one risk-distance and the computed target, the target is tightened to that
// level so the trade aims at a realistic barrier without dropping below 1R.
func CalculateProfitTarget(entry, stop float64, direction trade.Direction, targetRiskReward float64, levels []float64) float64 {
	if entry <= 0 {
		return 0
	}
	if targetRiskReward < 1.0 {
		targetRiskReward = 1.0
	}

	risk := math.Abs(entry - stop)
	if risk == 0 {
		return entry
	}

	var target float64
	if direction == trade.DirectionShort {
		target = entry - risk*targetRiskReward
	} else {
		target = entry + risk*targetRiskReward
	}

	// Tighten toward the nearest level inside (entry+1R, target) for longs,
	// mirrored for shorts.
	for _, level := range levels {
		if direction == trade.DirectionLong {
			if level >= entry+risk && level < target {
				target = level
			}
		} else {
			if level <= entry-risk && level > target {
				target = level
			}
		}
	}

	return target
}
