package risk

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/condition"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// neutralCondition produces a size factor of exactly 1.0
func neutralCondition() condition.MarketCondition {
	return condition.MarketCondition{
		HistoricalVol: 0.30,
		TrendStrength: 30,
		RSI:           50,
	}
}

func longSetup() trade.Setup {
	return trade.Setup{
		Symbol:       "SPY",
		Direction:    trade.DirectionLong,
		EntryPrice:   100,
		StopLoss:     98,
		ProfitTarget: 104,
		RiskReward:   2.0,
	}
}

// uncappedConfig lifts the position-value cap so risk-based sizing is visible
func uncappedConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxPositionSizePercent = 100
	return cfg
}

// TestSizeSetupRiskBased checks the 1 percent risk formula in isolation:
// 100k equity, $2 risk per share, 1% max risk gives 500 shares.
func TestSizeSetupRiskBased(t *testing.T) {
	m := NewManager(uncappedConfig(), nil, nil)
	m.UpdateAccount(100000, 100000)

	order := m.SizeSetup(longSetup(), neutralCondition())

	if !order.CanTrade {
		t.Fatalf("order should be tradeable, got reason %q", order.SizeReason)
	}
	if order.Shares != 500 {
		t.Errorf("shares = %.0f, want 500", order.Shares)
	}
	if math.Abs(order.RiskAmount-1000) > 1e-9 {
		t.Errorf("risk amount = %.2f, want 1000", order.RiskAmount)
	}
	if math.Abs(order.RiskPercent-1.0) > 1e-9 {
		t.Errorf("risk percent = %.4f, want 1.0", order.RiskPercent)
	}
}

// TestSizeSetupPositionValueCap checks that the 20 percent position-value
// ceiling reduces the risk-based size.
func TestSizeSetupPositionValueCap(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	m.UpdateAccount(100000, 100000)

	order := m.SizeSetup(longSetup(), neutralCondition())

	if !order.CanTrade {
		t.Fatalf("order should still be tradeable at reduced size, got %q", order.SizeReason)
	}
	// 500 risk-based shares at $100 is 50k notional; the 20% cap allows 20k
	if order.Shares != 200 {
		t.Errorf("shares = %.0f, want 200 after the position value cap", order.Shares)
	}
	if order.SizeReason != "reduced to max position size" {
		t.Errorf("size reason = %q, want the position size cap named", order.SizeReason)
	}
	if math.Abs(order.RiskAmount-400) > 1e-9 {
		t.Errorf("risk amount = %.2f, want 400 after reduction", order.RiskAmount)
	}
}

// TestSizeSetupBuyingPowerCap reduces to what the account can actually buy
func TestSizeSetupBuyingPowerCap(t *testing.T) {
	m := NewManager(uncappedConfig(), nil, nil)
	m.UpdateAccount(100000, 10000)

	order := m.SizeSetup(longSetup(), neutralCondition())

	if order.Shares != 100 {
		t.Errorf("shares = %.0f, want 100 against 10k buying power", order.Shares)
	}
	if order.SizeReason != "reduced to available buying power" {
		t.Errorf("size reason = %q, want buying power named", order.SizeReason)
	}
}

// TestSizeSetupNoEquity rejects sizing before the account is known
func TestSizeSetupNoEquity(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)

	order := m.SizeSetup(longSetup(), neutralCondition())

	if order.CanTrade {
		t.Error("order without account equity must not be tradeable")
	}
	if order.SizeReason != "no account equity" {
		t.Errorf("size reason = %q, want no account equity", order.SizeReason)
	}
}

// TestSizeSetupZeroRiskDistance rejects a stop sitting on the entry
func TestSizeSetupZeroRiskDistance(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	m.UpdateAccount(100000, 100000)

	s := longSetup()
	s.StopLoss = s.EntryPrice
	order := m.SizeSetup(s, neutralCondition())

	if order.CanTrade {
		t.Error("zero risk distance must not be tradeable")
	}
	if !strings.Contains(order.SizeReason, "zero risk distance") {
		t.Errorf("size reason = %q, want zero risk distance named", order.SizeReason)
	}
}

// TestSizeSetupHighVolReduces scales down in violent tape
func TestSizeSetupHighVolReduces(t *testing.T) {
	m := NewManager(uncappedConfig(), nil, nil)
	m.UpdateAccount(100000, 100000)

	cond := neutralCondition()
	cond.HistoricalVol = 0.70

	order := m.SizeSetup(longSetup(), cond)
	if order.Shares != 350 {
		t.Errorf("shares = %.0f, want 350 (500 scaled by the 0.7 high-vol factor)", order.Shares)
	}
}

// TestSizeSetupStretchedRSIReduces lightens longs entered into an overbought tape
func TestSizeSetupStretchedRSIReduces(t *testing.T) {
	m := NewManager(uncappedConfig(), nil, nil)
	m.UpdateAccount(100000, 100000)

	cond := neutralCondition()
	cond.RSI = 75

	order := m.SizeSetup(longSetup(), cond)
	if order.Shares != 400 {
		t.Errorf("shares = %.0f, want 400 (500 scaled by the 0.8 RSI factor)", order.Shares)
	}
}

// TestSizeSetupPortfolioBudgetExhausted rejects when open positions already
// consume the portfolio risk budget.
func TestSizeSetupPortfolioBudgetExhausted(t *testing.T) {
	m := NewManager(uncappedConfig(), nil, nil)
	m.UpdateAccount(100000, 100000)
	m.ReserveRisk("QQQ", 5000, 50000) // the full 5% budget

	order := m.SizeSetup(longSetup(), neutralCondition())

	if order.CanTrade {
		t.Error("order should be rejected with an exhausted risk budget")
	}
	if !strings.Contains(order.SizeReason, "portfolio risk budget") {
		t.Errorf("size reason = %q, want the risk budget named", order.SizeReason)
	}
}

// TestSizeSetupSectorExposureCap limits combined exposure within a sector
func TestSizeSetupSectorExposureCap(t *testing.T) {
	sectors := map[string]string{"AAPL": "tech", "MSFT": "tech"}
	m := NewManager(uncappedConfig(), sectors, nil)
	m.UpdateAccount(100000, 100000)
	m.ReserveRisk("MSFT", 500, 25000)

	s := longSetup()
	s.Symbol = "AAPL"
	order := m.SizeSetup(s, neutralCondition())

	// 30% sector limit is 30k; MSFT holds 25k, leaving room for 50 shares
	if order.Shares != 50 {
		t.Errorf("shares = %.0f, want 50 under the sector cap", order.Shares)
	}
	if !strings.Contains(order.SizeReason, "sector exposure") {
		t.Errorf("size reason = %q, want sector exposure named", order.SizeReason)
	}
}

// TestSizeSetupCorrelatedExposureCap limits exposure across correlated names
func TestSizeSetupCorrelatedExposureCap(t *testing.T) {
	correlated := map[string][]string{"QQQ": {"SPY"}}
	m := NewManager(uncappedConfig(), nil, correlated)
	m.UpdateAccount(100000, 100000)
	m.ReserveRisk("SPY", 400, 38000)

	s := longSetup()
	s.Symbol = "QQQ"
	order := m.SizeSetup(s, neutralCondition())

	// 40% correlated limit is 40k; SPY holds 38k, leaving room for 20 shares
	if order.Shares != 20 {
		t.Errorf("shares = %.0f, want 20 under the correlated cap", order.Shares)
	}
	if !strings.Contains(order.SizeReason, "correlated exposure") {
		t.Errorf("size reason = %q, want correlated exposure named", order.SizeReason)
	}
}

// TestReserveAndReleaseRisk verifies the open-risk bookkeeping
func TestReserveAndReleaseRisk(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	m.UpdateAccount(100000, 100000)

	m.ReserveRisk("SPY", 400, 20000)
	m.ReserveRisk("QQQ", 300, 15000)
	if got := m.OpenRiskAmount(); math.Abs(got-700) > 1e-9 {
		t.Errorf("open risk = %.2f, want 700", got)
	}

	m.ReleaseRisk("SPY")
	if got := m.OpenRiskAmount(); math.Abs(got-300) > 1e-9 {
		t.Errorf("open risk after release = %.2f, want 300", got)
	}
}

// TestDailyTradeCounterReset verifies calendar-day rollover
func TestDailyTradeCounterReset(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	// The counter anchors at construction time, so count on a future day
	day := time.Now().Add(48 * time.Hour).Truncate(24 * time.Hour)

	m.RegisterTrade(day.Add(1 * time.Hour))
	m.RegisterTrade(day.Add(2 * time.Hour))
	m.RegisterTrade(day.Add(3 * time.Hour))

	if got := m.DailyTradeCount(day.Add(3 * time.Hour)); got != 3 {
		t.Errorf("daily trade count = %d, want 3", got)
	}
	if got := m.DailyTradeCount(day.Add(25 * time.Hour)); got != 0 {
		t.Errorf("daily trade count after rollover = %d, want 0", got)
	}
}

// TestSnapshot verifies the point-in-time portfolio view
func TestSnapshot(t *testing.T) {
	m := NewManager(DefaultConfig(), nil, nil)
	m.UpdateAccount(100000, 80000)
	m.ReserveRisk("SPY", 400, 20000)

	now := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)
	snap := m.Snapshot(now)

	if snap.Equity != 100000 || snap.BuyingPower != 80000 {
		t.Errorf("snapshot account = %.0f/%.0f, want 100000/80000", snap.Equity, snap.BuyingPower)
	}
	if snap.OpenPositions != 1 {
		t.Errorf("open positions = %d, want 1", snap.OpenPositions)
	}
	if math.Abs(snap.OpenRiskPercent-0.4) > 1e-9 {
		t.Errorf("open risk percent = %.4f, want 0.4", snap.OpenRiskPercent)
	}
	if snap.PositionRisk["SPY"] != 400 {
		t.Errorf("position risk for SPY = %.2f, want 400", snap.PositionRisk["SPY"])
	}
}
