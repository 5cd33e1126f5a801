package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// PaperBroker simulates order fills against a virtual account so the engine
// can run end-to-end without a live broker connection.
type PaperBroker struct {
	mu          sync.RWMutex
	balance     float64
	buyingPower float64
	orders      map[string]OrderRequest
}

// NewPaperBroker creates a paper broker with the given starting balance
func NewPaperBroker(startingBalance float64) *PaperBroker {
	return &PaperBroker{
		balance:     startingBalance,
		buyingPower: startingBalance,
		orders:      make(map[string]OrderRequest),
	}
}

// GetAccount returns the simulated account state
func (b *PaperBroker) GetAccount(ctx context.Context) (Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Account{Balance: b.balance, BuyingPower: b.buyingPower}, nil
}

// SubmitOrder fills immediately at the requested price
func (b *PaperBroker) SubmitOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if req.Quantity <= 0 {
		return OrderResponse{}, fmt.Errorf("invalid quantity %.4f for %s", req.Quantity, req.Symbol)
	}
	if !req.Direction.Valid() {
		return OrderResponse{}, fmt.Errorf("invalid direction %q for %s", req.Direction, req.Symbol)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	notional := req.Quantity * req.Price
	if notional > b.buyingPower {
		return OrderResponse{}, fmt.Errorf("insufficient buying power: need %.2f, have %.2f", notional, b.buyingPower)
	}
	b.buyingPower -= notional

	orderID := uuid.New().String()
	b.orders[orderID] = req

	return OrderResponse{OrderID: orderID, FilledPrice: req.Price}, nil
}

// CancelOrder releases a previously submitted order's buying power
func (b *PaperBroker) CancelOrder(ctx context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	req, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	b.buyingPower += req.Quantity * req.Price
	delete(b.orders, orderID)
	return nil
}

// SettleClose credits realized P&L and releases the position's notional when
// a tracked position exits.
func (b *PaperBroker) SettleClose(closed trade.ClosedTrade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balance += closed.RealizedPnL
	b.buyingPower += closed.EntryPrice*closed.Quantity + closed.RealizedPnL
}

var _ Gateway = (*PaperBroker)(nil)
