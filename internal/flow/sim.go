package flow

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SimProvider fabricates options and dark-pool prints so the scorer has input
// when no real flow feed is configured.
type SimProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimProvider creates a simulated flow provider
func NewSimProvider(seed int64) *SimProvider {
	return &SimProvider{rng: rand.New(rand.NewSource(seed))}
}

// GetFlow returns a batch of simulated records per symbol
func (p *SimProvider) GetFlow(ctx context.Context, symbols []string, since time.Time) (*Data, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := &Data{}
	now := time.Now()
	window := now.Sub(since)
	if window <= 0 {
		window = time.Hour
	}

	for _, symbol := range symbols {
		// Bias per symbol per call so some cycles lean bullish, some bearish
		bias := p.rng.Float64()

		optionCount := 5 + p.rng.Intn(30)
		for i := 0; i < optionCount; i++ {
			optType := OptionCall
			if p.rng.Float64() > bias {
				optType = OptionPut
			}
			data.OptionsFlow = append(data.OptionsFlow, OptionsRecord{
				Symbol:    symbol,
				Type:      optType,
				Size:      float64(10 + p.rng.Intn(500)),
				Premium:   1000 + p.rng.Float64()*50000,
				Timestamp: since.Add(time.Duration(p.rng.Float64() * float64(window))),
			})
		}

		printCount := 2 + p.rng.Intn(10)
		for i := 0; i < printCount; i++ {
			side := SideBuy
			if p.rng.Float64() > bias {
				side = SideSell
			}
			data.DarkPool = append(data.DarkPool, DarkPoolRecord{
				Symbol:    symbol,
				Side:      side,
				Size:      float64(5000 + p.rng.Intn(100000)),
				Price:     50 + p.rng.Float64()*400,
				Timestamp: since.Add(time.Duration(p.rng.Float64() * float64(window))),
			})
		}
	}

	return data, nil
}

var _ DataProvider = (*SimProvider)(nil)
