// Package broker defines the gateway the engine submits accepted orders
// through, plus a paper-trading implementation for development and tests.
package broker

import (
	"context"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// Account is the broker's view of the trading account
type Account struct {
	Balance     float64 `json:"balance"`
	BuyingPower float64 `json:"buying_power"`
}

// OrderRequest is the order the engine submits after gate acceptance
type OrderRequest struct {
	Symbol    string          `json:"symbol"`
	Direction trade.Direction `json:"direction"`
	Quantity  float64         `json:"quantity"`
	Price     float64         `json:"price"`
	StopLoss  float64         `json:"stop_loss"`
	Target    float64         `json:"target"`
}

// OrderResponse acknowledges a submitted order
type OrderResponse struct {
	OrderID     string  `json:"order_id"`
	FilledPrice float64 `json:"filled_price"`
}

// Gateway is the broker boundary. It is invoked only after the execution
// gate accepts a sized order, never inside the decision pipeline.
type Gateway interface {
	GetAccount(ctx context.Context) (Account, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	CancelOrder(ctx context.Context, orderID string) error
}
