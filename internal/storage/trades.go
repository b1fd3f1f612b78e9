package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mselser95/kalshi-edge/pkg/types"
	"go.uber.org/zap"
)

const tradeColumns = `id, market_id, recommendation_id, venue_trade_id, direction,
	price, contracts, amount, fees_paid, status, pnl, created_at, closed_at`

// InsertTrade stores a new trade record and returns the stored row.
func (p *PostgresStore) InsertTrade(ctx context.Context, t *types.Trade) (*types.Trade, error) {
	query := `
		INSERT INTO trades (id, market_id, recommendation_id, venue_trade_id, direction,
			price, contracts, amount, fees_paid, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'open', now())
		RETURNING ` + tradeColumns

	row := p.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		t.MarketID,
		t.RecommendationID,
		t.VenueTradeID,
		string(t.Direction),
		t.Price,
		t.Contracts,
		t.Amount,
		t.FeesPaid,
	)

	stored, err := scanTrade(row)
	if err != nil {
		return nil, fmt.Errorf("insert trade: %w", err)
	}

	p.logger.Info("trade-recorded",
		zap.String("market-id", t.MarketID),
		zap.String("venue-trade-id", t.VenueTradeID),
		zap.String("direction", string(t.Direction)),
		zap.Float64("amount", t.Amount))

	return stored, nil
}

// TradeByVenueID looks up a trade by its venue id (used for fill and
// order dedup).
func (p *PostgresStore) TradeByVenueID(ctx context.Context, venueTradeID string) (*types.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE venue_trade_id = $1`

	t, err := scanTrade(p.db.QueryRowContext(ctx, query, venueTradeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("trade by venue id: %w", err)
	}

	return t, nil
}

// OpenTrades returns all open trades.
func (p *PostgresStore) OpenTrades(ctx context.Context) ([]types.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE status = 'open' ORDER BY created_at ASC`

	return p.queryTrades(ctx, query)
}

// OpenTradeForMarket returns the oldest open trade on one side of a
// market, or ErrNotFound.
func (p *PostgresStore) OpenTradeForMarket(ctx context.Context, marketID string, dir types.Direction) (*types.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE market_id = $1 AND direction = $2 AND status = 'open'
		ORDER BY created_at ASC LIMIT 1`

	t, err := scanTrade(p.db.QueryRowContext(ctx, query, marketID, string(dir)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open trade for market: %w", err)
	}

	return t, nil
}

// OpenTradesForMarket returns all open trades on a market.
func (p *PostgresStore) OpenTradesForMarket(ctx context.Context, marketID string) ([]types.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades
		WHERE market_id = $1 AND status = 'open' ORDER BY created_at ASC`

	return p.queryTrades(ctx, query, marketID)
}

// UpdateTradeFill rewrites an order trade with the matched fill: the
// venue trade id flips from its order_ key to the fill_ key so later
// sync passes deduplicate, and price, contracts, amount and fees take
// the values the venue actually executed.
func (p *PostgresStore) UpdateTradeFill(ctx context.Context, id, venueTradeID string, price float64, contracts int, amount, fees float64) error {
	query := `UPDATE trades SET venue_trade_id = $2, price = $3, contracts = $4, amount = $5, fees_paid = $6 WHERE id = $1`

	_, err := p.db.ExecContext(ctx, query, id, venueTradeID, price, contracts, amount, fees)
	if err != nil {
		return fmt.Errorf("update trade fill: %w", err)
	}

	return nil
}

// CloseTrade records the realized PnL of a resolved trade.
func (p *PostgresStore) CloseTrade(ctx context.Context, id string, pnl float64) error {
	query := `UPDATE trades SET status = 'closed', pnl = $2, closed_at = now() WHERE id = $1`

	_, err := p.db.ExecContext(ctx, query, id, pnl)
	if err != nil {
		return fmt.Errorf("close trade: %w", err)
	}

	return nil
}

// CancelTrade marks a trade canceled with zero PnL.
func (p *PostgresStore) CancelTrade(ctx context.Context, id string) error {
	query := `UPDATE trades SET status = 'canceled', pnl = 0, closed_at = now() WHERE id = $1`

	_, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("cancel trade: %w", err)
	}

	return nil
}

// OpenExposure returns the total dollars at risk across open trades.
func (p *PostgresStore) OpenExposure(ctx context.Context) (float64, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM trades WHERE status = 'open'`

	var total float64
	err := p.db.QueryRowContext(ctx, query).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("open exposure: %w", err)
	}

	return total, nil
}

func (p *PostgresStore) queryTrades(ctx context.Context, query string, args ...interface{}) ([]types.Trade, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []types.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, *t)
	}

	return trades, rows.Err()
}

func scanTrade(row rowScanner) (*types.Trade, error) {
	var (
		t        types.Trade
		recID    sql.NullString
		pnl      sql.NullFloat64
		closedAt sql.NullTime
	)

	err := row.Scan(&t.ID, &t.MarketID, &recID, &t.VenueTradeID, &t.Direction,
		&t.Price, &t.Contracts, &t.Amount, &t.FeesPaid, &t.Status, &pnl, &t.CreatedAt, &closedAt)
	if err != nil {
		return nil, err
	}

	if recID.Valid {
		v := recID.String
		t.RecommendationID = &v
	}
	if pnl.Valid {
		v := pnl.Float64
		t.PnL = &v
	}
	if closedAt.Valid {
		v := closedAt.Time
		t.ClosedAt = &v
	}

	return &t, nil
}
