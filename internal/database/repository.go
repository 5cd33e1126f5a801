package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/risk"
	"github.com/geniseb1993/AI-Trading-Bot-sub000/internal/trade"
)

// Repository is the append-only trade store
type Repository struct {
	db     *DB
	logger zerolog.Logger
}

// NewRepository creates a trade-store repository
func NewRepository(db *DB, logger zerolog.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Record appends a closed trade
func (r *Repository) Record(ctx context.Context, t trade.ClosedTrade) error {
	query := `
		INSERT INTO closed_trades (
			id, symbol, direction, entry_price, exit_price, quantity,
			entry_time, exit_time, realized_pnl, realized_pnl_pct, exit_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		t.ID,
		t.Symbol,
		string(t.Direction),
		t.EntryPrice,
		t.ExitPrice,
		t.Quantity,
		t.EntryTime,
		t.ExitTime,
		t.RealizedPnL,
		t.RealizedPnLPct,
		t.ExitReason,
	)
	if err != nil {
		return fmt.Errorf("failed to record closed trade: %w", err)
	}

	r.logger.Debug().Str("symbol", t.Symbol).Str("exit_reason", t.ExitReason).Msg("closed trade recorded")
	return nil
}

// RecordSnapshot appends a portfolio snapshot
func (r *Repository) RecordSnapshot(ctx context.Context, snap risk.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (
			taken_at, equity, buying_power, open_risk_amount,
			open_risk_percent, open_positions, daily_trade_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		snap.Timestamp,
		snap.Equity,
		snap.BuyingPower,
		snap.OpenRiskAmount,
		snap.OpenRiskPercent,
		snap.OpenPositions,
		snap.DailyTradeCount,
	)
	if err != nil {
		return fmt.Errorf("failed to record portfolio snapshot: %w", err)
	}

	return nil
}

// ListTrades returns recent closed trades, newest first
func (r *Repository) ListTrades(ctx context.Context, limit int) ([]trade.ClosedTrade, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, symbol, direction, entry_price, exit_price, quantity,
			entry_time, exit_time, realized_pnl, realized_pnl_pct, exit_reason
		FROM closed_trades
		ORDER BY exit_time DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed trades: %w", err)
	}
	defer rows.Close()

	var trades []trade.ClosedTrade
	for rows.Next() {
		var t trade.ClosedTrade
		var direction string
		if err := rows.Scan(
			&t.ID, &t.Symbol, &direction, &t.EntryPrice, &t.ExitPrice, &t.Quantity,
			&t.EntryTime, &t.ExitTime, &t.RealizedPnL, &t.RealizedPnLPct, &t.ExitReason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan closed trade: %w", err)
		}
		t.Direction = trade.Direction(direction)
		trades = append(trades, t)
	}

	return trades, rows.Err()
}
