package market

import (
	"context"
	"time"
)

// DataProvider supplies bar data for the decision engine.
// Implementations wrap whatever market data feed is in use; the engine
// treats the returned series as already-resolved, read-only input.
type DataProvider interface {
	GetBars(ctx context.Context, symbol, timeframe string, limit int) (*Series, error)
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}

// Session describes the trading session in wall-clock terms
type Session struct {
	Open     time.Duration // offset from midnight, e.g. 9h30m
	Close    time.Duration // offset from midnight, e.g. 16h
	Location *time.Location
}

// Contains reports whether now falls inside the session window
func (s Session) Contains(now time.Time) bool {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	offset := local.Sub(midnight)
	return offset >= s.Open && offset < s.Close
}

// MinutesFromOpen returns the minutes elapsed since session open (negative before open)
func (s Session) MinutesFromOpen(now time.Time) float64 {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return (local.Sub(midnight) - s.Open).Minutes()
}

// MinutesToClose returns the minutes remaining until session close (negative after close)
func (s Session) MinutesToClose(now time.Time) float64 {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return (s.Close - local.Sub(midnight)).Minutes()
}
