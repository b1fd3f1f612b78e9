package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// InsertCost records the token spend of one model call.
func (p *PostgresStore) InsertCost(ctx context.Context, c *types.ResearchCost) error {
	query := `
		INSERT INTO research_cost_log (id, market_id, model, purpose,
			input_tokens, output_tokens, cost_usd, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`

	marketID := sql.NullString{String: c.MarketID, Valid: c.MarketID != ""}

	_, err := p.db.ExecContext(ctx, query,
		uuid.NewString(), marketID, c.Model, c.Purpose,
		c.InputTokens, c.OutputTokens, c.CostUSD)
	if err != nil {
		return fmt.Errorf("insert cost: %w", err)
	}

	return nil
}

// CostSince returns the total research spend in dollars since a time.
func (p *PostgresStore) CostSince(ctx context.Context, since time.Time) (float64, error) {
	query := `SELECT COALESCE(SUM(cost_usd), 0) FROM research_cost_log WHERE created_at >= $1`

	var total float64
	err := p.db.QueryRowContext(ctx, query, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("cost since: %w", err)
	}

	return total, nil
}

// InsertSyncLog appends the result of one reconciliation pass.
func (p *PostgresStore) InsertSyncLog(ctx context.Context, r *types.SyncResult) error {
	query := `
		INSERT INTO trade_sync_log (id, fills_seen, trades_created, trades_updated,
			trades_canceled, skipped, ran_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`

	_, err := p.db.ExecContext(ctx, query,
		uuid.NewString(), r.FillsSeen, r.TradesCreated, r.TradesUpdated,
		r.TradesCanceled, r.Skipped)
	if err != nil {
		return fmt.Errorf("insert sync log: %w", err)
	}

	return nil
}
