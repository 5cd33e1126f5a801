package market

import (
	"fmt"
	"time"
)

// Bar represents a single OHLCV bar for one symbol
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Quote represents the current best bid/ask for a symbol.
// A zero-value Quote means no quote data is available.
type Quote struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// HasSpread reports whether the quote carries a usable bid/ask pair
func (q Quote) HasSpread() bool {
	return q.Bid > 0 && q.Ask > 0
}

// SpreadPercent returns (ask-bid)/bid as a percentage
func (q Quote) SpreadPercent() float64 {
	if !q.HasSpread() {
		return 0
	}
	return (q.Ask - q.Bid) / q.Bid * 100
}

// Series is a time-ascending sequence of bars for one symbol.
// The engine only reads a series; the caller owns it.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Validate checks that bars are time-ascending with no duplicate timestamps
func (s *Series) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		prev := s.Bars[i-1].Timestamp
		cur := s.Bars[i].Timestamp
		if !cur.After(prev) {
			return fmt.Errorf("series %s: bar %d timestamp %s is not after %s", s.Symbol, i, cur, prev)
		}
	}
	return nil
}

// Len returns the number of bars in the series
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar, or false when the series is empty
func (s *Series) Last() (Bar, bool) {
	if s.Len() == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// LastClose returns the most recent close price, or 0 when empty
func (s *Series) LastClose() float64 {
	bar, ok := s.Last()
	if !ok {
		return 0
	}
	return bar.Close
}

// Closes returns all close prices in series order
func (s *Series) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}
