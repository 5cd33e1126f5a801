// Package notification pushes engine activity (setups, fills, closes,
// breaker trips) to chat webhooks. Delivery is best effort; a failed send
// never blocks the decision cycle.
package notification

import (
	"fmt"
	"time"
)

// NotificationType classifies a message for provider formatting
type NotificationType string

const (
	NotifySetup      NotificationType = "setup"
	NotifyTradeOpen  NotificationType = "trade_open"
	NotifyTradeClose NotificationType = "trade_close"
	NotifyError      NotificationType = "error"
	NotifyInfo       NotificationType = "info"
)

// Notification is a provider-agnostic message
type Notification struct {
	Type       NotificationType
	Title      string
	Message    string
	Symbol     string
	Price      float64
	PnL        float64
	PnLPercent float64
	Timestamp  time.Time
	Extra      map[string]interface{}
}

// Notifier delivers notifications over one channel
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager fans notifications out to every registered provider
type Manager struct {
	notifiers []Notifier
}

// NewManager creates an empty notification manager
func NewManager() *Manager {
	return &Manager{}
}

// AddNotifier registers a delivery channel
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send delivers to all enabled providers, returning the last failure
func (m *Manager) Send(n *Notification) error {
	var lastErr error
	for _, notifier := range m.notifiers {
		if !notifier.IsEnabled() {
			continue
		}
		if err := notifier.Send(n); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// SendSetup announces a generated trade setup with its levels and rationale
func (m *Manager) SendSetup(symbol, direction, setupType, rationale string, entry, stopLoss, target float64) error {
	marker := "🟢"
	if direction == "SHORT" {
		marker = "🔴"
	}

	return m.Send(&Notification{
		Type:      NotifySetup,
		Title:     fmt.Sprintf("%s Setup: %s", marker, symbol),
		Message:   fmt.Sprintf("%s %s (%s) @ %.4f\nSL: %.4f | TP: %.4f\n%s", direction, symbol, setupType, entry, stopLoss, target, rationale),
		Symbol:    symbol,
		Price:     entry,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"direction":  direction,
			"setup_type": setupType,
			"stop_loss":  stopLoss,
			"target":     target,
		},
	})
}

// SendTradeOpen announces an executed entry
func (m *Manager) SendTradeOpen(symbol, direction string, price, quantity float64) error {
	return m.Send(&Notification{
		Type:      NotifyTradeOpen,
		Title:     fmt.Sprintf("📈 Trade Opened: %s", symbol),
		Message:   fmt.Sprintf("%s %s\nPrice: %.4f\nQuantity: %.4f", direction, symbol, price, quantity),
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now(),
	})
}

// SendTradeClose announces a closed position with its realized result
func (m *Manager) SendTradeClose(symbol string, entryPrice, exitPrice, pnl, pnlPercent float64, reason string) error {
	marker := "✅"
	if pnl < 0 {
		marker = "❌"
	}

	return m.Send(&Notification{
		Type:       NotifyTradeClose,
		Title:      fmt.Sprintf("%s Trade Closed: %s", marker, symbol),
		Message:    fmt.Sprintf("Entry: %.4f -> Exit: %.4f\nP&L: %.4f (%.2f%%)\nReason: %s", entryPrice, exitPrice, pnl, pnlPercent, reason),
		Symbol:     symbol,
		Price:      exitPrice,
		PnL:        pnl,
		PnLPercent: pnlPercent,
		Timestamp:  time.Now(),
	})
}

// SendError raises an operational alert
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}
