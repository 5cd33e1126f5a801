package position

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

var trackTime = time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

func sizedOrder(symbol string, dir trade.Direction, entry, stop, target, shares float64) trade.SizedOrder {
	return trade.SizedOrder{
		Setup: trade.Setup{
			Symbol:       symbol,
			Direction:    dir,
			EntryPrice:   entry,
			StopLoss:     stop,
			ProfitTarget: target,
		},
		Shares:   shares,
		CanTrade: true,
	}
}

func newTestTracker() *Tracker {
	return NewTracker(nil, zerolog.Nop())
}

// TestOpenRejectsDuplicateSymbol enforces one position per symbol
func TestOpenRejectsDuplicateSymbol(t *testing.T) {
	tr := newTestTracker()

	if _, err := tr.Open(sizedOrder("SPY", trade.DirectionLong, 100, 95, 110, 10), trackTime); err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := tr.Open(sizedOrder("SPY", trade.DirectionShort, 101, 106, 95, 5), trackTime); !errors.Is(err, ErrPositionExists) {
		t.Errorf("second open returned %v, want ErrPositionExists", err)
	}
	if tr.Count() != 1 {
		t.Errorf("count = %d, want 1", tr.Count())
	}
}

// TestStopLossExit closes at the current price when it pierces the stop
func TestStopLossExit(t *testing.T) {
	tr := newTestTracker()
	tr.Open(sizedOrder("SPY", trade.DirectionLong, 100, 95, 110, 10), trackTime)

	closed := tr.Update(map[string]float64{"SPY": 94}, trackTime.Add(time.Hour), nil)
	if len(closed) != 1 {
		t.Fatalf("got %d closed trades, want 1", len(closed))
	}

	ct := closed[0]
	if ct.ExitReason != trade.ExitReasonStopLoss {
		t.Errorf("exit reason = %s, want stop_loss", ct.ExitReason)
	}
	// The exit fills at the gapped price, not the stop level
	if ct.ExitPrice != 94 {
		t.Errorf("exit price = %.2f, want 94", ct.ExitPrice)
	}
	if math.Abs(ct.RealizedPnL-(-60)) > 1e-9 {
		t.Errorf("realized P&L = %.2f, want -60", ct.RealizedPnL)
	}
	if math.Abs(ct.RealizedPnLPct-(-6)) > 1e-9 {
		t.Errorf("realized P&L pct = %.2f, want -6", ct.RealizedPnLPct)
	}
	if tr.Has("SPY") {
		t.Error("position should be removed after closing")
	}
}

// TestProfitTargetExit closes when price reaches the target
func TestProfitTargetExit(t *testing.T) {
	tr := newTestTracker()
	tr.Open(sizedOrder("SPY", trade.DirectionLong, 100, 95, 110, 10), trackTime)

	closed := tr.Update(map[string]float64{"SPY": 111}, trackTime.Add(time.Hour), nil)
	if len(closed) != 1 {
		t.Fatalf("got %d closed trades, want 1", len(closed))
	}
	if closed[0].ExitReason != trade.ExitReasonProfitTarget {
		t.Errorf("exit reason = %s, want profit_target", closed[0].ExitReason)
	}
	if math.Abs(closed[0].RealizedPnL-110) > 1e-9 {
		t.Errorf("realized P&L = %.2f, want 110", closed[0].RealizedPnL)
	}
}

// TestExitSignalClosesPosition honors the discretionary exit callback
func TestExitSignalClosesPosition(t *testing.T) {
	tr := newTestTracker()
	tr.Open(sizedOrder("SPY", trade.DirectionLong, 100, 95, 110, 10), trackTime)

	exitAll := func(pos trade.Position, now time.Time) (bool, string) { return true, "" }
	closed := tr.Update(map[string]float64{"SPY": 102}, trackTime.Add(time.Hour), exitAll)

	if len(closed) != 1 {
		t.Fatalf("got %d closed trades, want 1", len(closed))
	}
	if closed[0].ExitReason != trade.ExitReasonSignal {
		t.Errorf("exit reason = %s, want exit_signal", closed[0].ExitReason)
	}
}

// TestStopLossBeatsExitSignal checks the exit priority order
func TestStopLossBeatsExitSignal(t *testing.T) {
	tr := newTestTracker()
	tr.Open(sizedOrder("SPY", trade.DirectionLong, 100, 95, 110, 10), trackTime)

	exitAll := func(pos trade.Position, now time.Time) (bool, string) { return true, "discretionary" }
	closed := tr.Update(map[string]float64{"SPY": 94}, trackTime.Add(time.Hour), exitAll)

	if len(closed) != 1 {
		t.Fatalf("got %d closed trades, want 1", len(closed))
	}
	if closed[0].ExitReason != trade.ExitReasonStopLoss {
		t.Errorf("exit reason = %s, want stop_loss ahead of the exit signal", closed[0].ExitReason)
	}
}

// TestShortPositionLifecycle checks the mirrored P&L and exit math
func TestShortPositionLifecycle(t *testing.T) {
	tr := newTestTracker()
	tr.Open(sizedOrder("QQQ", trade.DirectionShort, 100, 105, 90, 10), trackTime)

	closed := tr.Update(map[string]float64{"QQQ": 104}, trackTime.Add(time.Hour), nil)
	if len(closed) != 0 {
		t.Fatal("short should stay open below the stop")
	}

	pos, ok := tr.Get("QQQ")
	if !ok {
		t.Fatal("position lookup failed")
	}
	if math.Abs(pos.UnrealizedPnL-(-40)) > 1e-9 {
		t.Errorf("unrealized P&L = %.2f, want -40 for a short moving against", pos.UnrealizedPnL)
	}

	closed = tr.Update(map[string]float64{"QQQ": 105}, trackTime.Add(2*time.Hour), nil)
	if len(closed) != 1 || closed[0].ExitReason != trade.ExitReasonStopLoss {
		t.Fatal("short should stop out at or above the stop price")
	}
	if math.Abs(closed[0].RealizedPnL-(-50)) > 1e-9 {
		t.Errorf("realized P&L = %.2f, want -50", closed[0].RealizedPnL)
	}
}

// TestMissingPriceCarriesPosition keeps positions without fresh prices
func TestMissingPriceCarriesPosition(t *testing.T) {
	tr := newTestTracker()
	tr.Open(sizedOrder("SPY", trade.DirectionLong, 100, 95, 110, 10), trackTime)

	closed := tr.Update(map[string]float64{}, trackTime.Add(time.Hour), nil)
	if len(closed) != 0 {
		t.Error("positions without a fresh price must carry unchanged")
	}
	if !tr.Has("SPY") {
		t.Error("position should survive a cycle without prices")
	}
}

// TestTrailingStopRatchetsAndExits trails the stop under a rally and exits on
// the pullback with the trailing reason.
func TestTrailingStopRatchetsAndExits(t *testing.T) {
	trailing := NewTrailingStopManager(TrailingConfig{
		Enabled:           true,
		TrailingPercent:   1.0,
		ActivationPercent: 1.0,
	})
	tr := NewTracker(trailing, zerolog.Nop())
	tr.Open(sizedOrder("SPY", trade.DirectionLong, 100, 95, 150, 10), trackTime)

	// Rally activates trailing and moves the stop to 105 * 0.99 = 103.95
	closed := tr.Update(map[string]float64{"SPY": 105}, trackTime.Add(time.Hour), nil)
	if len(closed) != 0 {
		t.Fatal("position should remain open while the rally holds")
	}
	pos, _ := tr.Get("SPY")
	if math.Abs(pos.StopLoss-103.95) > 1e-9 {
		t.Errorf("trailed stop = %.4f, want 103.95", pos.StopLoss)
	}

	// Pullback through the trailed stop exits with the trailing reason
	closed = tr.Update(map[string]float64{"SPY": 103}, trackTime.Add(2*time.Hour), nil)
	if len(closed) != 1 {
		t.Fatal("pullback through the trailed stop should close the position")
	}
	if closed[0].ExitReason != trade.ExitReasonTrailingStop {
		t.Errorf("exit reason = %s, want trailing_stop", closed[0].ExitReason)
	}
	if math.Abs(closed[0].RealizedPnL-30) > 1e-9 {
		t.Errorf("realized P&L = %.2f, want +30", closed[0].RealizedPnL)
	}
}

// TestManualClose force-closes at the supplied price
func TestManualClose(t *testing.T) {
	tr := newTestTracker()
	tr.Open(sizedOrder("SPY", trade.DirectionLong, 100, 95, 110, 10), trackTime)

	ct, ok := tr.Close("SPY", 102, "manual", trackTime.Add(time.Hour))
	if !ok {
		t.Fatal("close should find the open position")
	}
	if ct.ExitReason != "manual" || math.Abs(ct.RealizedPnL-20) > 1e-9 {
		t.Errorf("closed trade = %s/%.2f, want manual/+20", ct.ExitReason, ct.RealizedPnL)
	}

	if _, ok := tr.Close("SPY", 102, "manual", trackTime); ok {
		t.Error("closing an already-closed symbol should report false")
	}
}
