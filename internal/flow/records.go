// Package flow scores raw institutional order-flow records (options sweeps
// and dark-pool prints) into a bounded directional signal per symbol.
package flow

import (
	"context"
	"time"
)

// Option contract types
const (
	OptionCall = "call"
	OptionPut  = "put"
)

// Dark-pool print sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// OptionsRecord is one raw options-flow record as delivered by the feed
type OptionsRecord struct {
	Symbol    string    `json:"symbol"`
	Type      string    `json:"type"` // "call" or "put"
	Size      float64   `json:"size"`
	Premium   float64   `json:"premium"`
	Timestamp time.Time `json:"timestamp"`
}

// DarkPoolRecord is one raw dark-pool print
type DarkPoolRecord struct {
	Symbol    string    `json:"symbol"`
	Side      string    `json:"side"` // "buy" or "sell"
	Size      float64   `json:"size"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// Data bundles the raw records returned by a flow provider
type Data struct {
	OptionsFlow []OptionsRecord `json:"options_flow"`
	DarkPool    []DarkPoolRecord `json:"dark_pool"`
}

// DataProvider supplies raw flow records for a set of symbols
type DataProvider interface {
	GetFlow(ctx context.Context, symbols []string, since time.Time) (*Data, error)
}

// Signal is the scored, immutable flow signal for one symbol.
// All signal values live in [-1, 1]; confidence in [0, 1].
type Signal struct {
	Symbol             string    `json:"symbol"`
	OptionsSignal      float64   `json:"options_signal"`
	DarkPoolSignal     float64   `json:"dark_pool_signal"`
	Combined           float64   `json:"combined_signal"`
	Confidence         float64   `json:"confidence"`
	HasSignificantFlow bool      `json:"has_significant_flow"`
	ComputedAt         time.Time `json:"computed_at"`
}

// FilterOptions returns the options records matching symbol
func FilterOptions(records []OptionsRecord, symbol string) []OptionsRecord {
	var out []OptionsRecord
	for _, r := range records {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out
}

// FilterDarkPool returns the dark-pool records matching symbol
func FilterDarkPool(records []DarkPoolRecord, symbol string) []DarkPoolRecord {
	var out []DarkPoolRecord
	for _, r := range records {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out
}
