package market

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

// SimProvider generates random-walk bar data so the engine can run without a
// live market data connection.
type SimProvider struct {
	mu       sync.Mutex
	prices   map[string]float64
	rng      *rand.Rand
	baseVol  float64
	timeframe map[string]time.Duration
}

// NewSimProvider creates a simulated data provider. Unknown symbols start
// near 100.
func NewSimProvider(seed int64) *SimProvider {
	return &SimProvider{
		prices: map[string]float64{
			"SPY":  450,
			"QQQ":  380,
			"AAPL": 190,
			"MSFT": 420,
			"NVDA": 120,
		},
		rng:     rand.New(rand.NewSource(seed)),
		baseVol: 0.004,
		timeframe: map[string]time.Duration{
			"1m":  time.Minute,
			"5m":  5 * time.Minute,
			"15m": 15 * time.Minute,
			"1h":  time.Hour,
			"1d":  24 * time.Hour,
		},
	}
}

// GetBars returns limit simulated bars ending at the current time
func (p *SimProvider) GetBars(ctx context.Context, symbol, timeframe string, limit int) (*Series, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("bar limit must be positive, got %d", limit)
	}

	step, ok := p.timeframe[timeframe]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q", timeframe)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	price := p.basePrice(symbol)
	now := time.Now().Truncate(step)
	start := now.Add(-time.Duration(limit) * step)

	bars := make([]Bar, limit)
	for i := 0; i < limit; i++ {
		change := (p.rng.Float64() - 0.5) * p.baseVol * 2
		open := price
		close := open * (1 + change)
		high := math.Max(open, close) * (1 + p.rng.Float64()*p.baseVol*0.5)
		low := math.Min(open, close) * (1 - p.rng.Float64()*p.baseVol*0.5)
		volume := 500000 + p.rng.Float64()*2000000

		bars[i] = Bar{
			Timestamp: start.Add(time.Duration(i+1) * step),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		}
		price = close
	}

	p.prices[symbol] = price

	return &Series{Symbol: symbol, Bars: bars}, nil
}

// GetQuote returns a simulated quote a few basis points around the last price
func (p *SimProvider) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price := p.basePrice(symbol)
	halfSpread := price * 0.0002 * (0.5 + p.rng.Float64())

	return Quote{
		Bid: price - halfSpread,
		Ask: price + halfSpread,
	}, nil
}

func (p *SimProvider) basePrice(symbol string) float64 {
	if price, ok := p.prices[symbol]; ok {
		return price
	}
	price := 80 + p.rng.Float64()*40
	p.prices[symbol] = price
	return price
}

var _ DataProvider = (*SimProvider)(nil)
