package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/cache"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/indicators"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/market"
)

// Config holds flow scorer weights and thresholds
type Config struct {
	OptionsWeight       float64 `json:"options_weight"`
	DarkPoolWeight      float64 `json:"dark_pool_weight"`
	CorrelationWeight   float64 `json:"correlation_weight"`
	CorrelationPeriod   int     `json:"correlation_period"`
	SignificanceFloor   float64 `json:"significance_floor"`   // |combined| needed for significant flow
	ConfidenceFloor     float64 `json:"confidence_floor"`     // confidence needed for significant flow
	CacheBucket         time.Duration `json:"cache_bucket"`   // coarse bucket for signal caching
}

// DefaultConfig returns scorer defaults
func DefaultConfig() Config {
	return Config{
		OptionsWeight:     0.40,
		DarkPoolWeight:    0.35,
		CorrelationWeight: 0.25,
		CorrelationPeriod: 10,
		SignificanceFloor: 0.30,
		ConfidenceFloor:   0.40,
		CacheBucket:       5 * time.Minute,
	}
}

// Scorer turns raw flow records into Signals. Signals are cached per
// (symbol, coarse time bucket) so repeated cycles inside a bucket reuse the
// previous computation.
type Scorer struct {
	config Config
	cache  *cache.Service // optional
}

// NewScorer creates a flow scorer. cacheService may be nil.
func NewScorer(cfg Config, cacheService *cache.Service) *Scorer {
	if cfg.OptionsWeight+cfg.DarkPoolWeight+cfg.CorrelationWeight == 0 {
		cfg = DefaultConfig()
	}
	return &Scorer{config: cfg, cache: cacheService}
}

// Score computes the flow signal for one symbol, serving from cache when a
// signal for the current time bucket already exists. Empty record legs yield
// a neutral contribution, never an error.
func (s *Scorer) Score(ctx context.Context, symbol string, options []OptionsRecord, darkPool []DarkPoolRecord, series *market.Series, now time.Time) Signal {
	if s.cache != nil {
		bucket := now.Truncate(s.config.CacheBucket).Unix()
		key := fmt.Sprintf(cache.PrefixFlowSignal, symbol, bucket)

		var cached Signal
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached
		}

		sig := s.compute(symbol, options, darkPool, series, now)
		_ = s.cache.Set(ctx, key, sig, cache.DefaultFlowSignalTTL)
		return sig
	}

	return s.compute(symbol, options, darkPool, series, now)
}

func (s *Scorer) compute(symbol string, options []OptionsRecord, darkPool []DarkPoolRecord, series *market.Series, now time.Time) Signal {
	sig := Signal{
		Symbol:     symbol,
		ComputedAt: now,
	}

	sig.OptionsSignal = scoreOptions(options)
	sig.DarkPoolSignal = scoreDarkPool(darkPool)

	var corr float64
	if series != nil {
		corr = indicators.CalculatePriceTrendCorrelation(series.Bars, s.config.CorrelationPeriod)
	}

	totalWeight := s.config.OptionsWeight + s.config.DarkPoolWeight + s.config.CorrelationWeight
	if totalWeight > 0 {
		sig.Combined = (s.config.OptionsWeight*sig.OptionsSignal +
			s.config.DarkPoolWeight*sig.DarkPoolSignal +
			s.config.CorrelationWeight*corr) / totalWeight
	}
	sig.Combined = clamp(sig.Combined, -1, 1)

	sig.Confidence = s.confidence(len(options), len(darkPool), corr)
	sig.HasSignificantFlow = abs(sig.Combined) >= s.config.SignificanceFloor &&
		sig.Confidence >= s.config.ConfidenceFloor

	return sig
}

// scoreOptions maps the weighted put/call ratio onto [-1, 1]. Volume counts
// for 40% of the ratio and premium for 60%; a ratio above 0.5 is bearish.
func scoreOptions(records []OptionsRecord) float64 {
	if len(records) == 0 {
		return 0
	}

	var putVol, callVol, putPrem, callPrem float64
	for _, r := range records {
		switch r.Type {
		case OptionPut:
			putVol += r.Size
			putPrem += r.Premium
		case OptionCall:
			callVol += r.Size
			callPrem += r.Premium
		}
	}

	totalVol := putVol + callVol
	totalPrem := putPrem + callPrem
	if totalVol == 0 && totalPrem == 0 {
		return 0
	}

	volRatio := 0.5
	if totalVol > 0 {
		volRatio = putVol / totalVol
	}
	premRatio := 0.5
	if totalPrem > 0 {
		premRatio = putPrem / totalPrem
	}

	ratio := 0.4*volRatio + 0.6*premRatio

	// ratio 0 → +1 (all calls), 0.5 → 0, 1 → -1 (all puts)
	return clamp((0.5-ratio)*2, -1, 1)
}

// scoreDarkPool maps the buy/sell volume ratio onto [-1, 1]
func scoreDarkPool(records []DarkPoolRecord) float64 {
	if len(records) == 0 {
		return 0
	}

	var buyVol, sellVol float64
	for _, r := range records {
		switch r.Side {
		case SideBuy:
			buyVol += r.Size
		case SideSell:
			sellVol += r.Size
		}
	}

	total := buyVol + sellVol
	if total == 0 {
		return 0
	}

	return clamp((buyVol/total-0.5)*2, -1, 1)
}

// confidence grows with record counts (capped) and correlation strength
func (s *Scorer) confidence(optionCount, darkPoolCount int, corr float64) float64 {
	countFactor := float64(optionCount+darkPoolCount) / 40.0
	if countFactor > 0.7 {
		countFactor = 0.7
	}

	return clamp(countFactor+abs(corr)*0.3, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
