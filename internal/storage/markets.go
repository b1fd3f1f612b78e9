package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/kalshi-edge/pkg/types"
	"go.uber.org/zap"
)

const marketColumns = `id, venue, venue_id, question, description, resolution_criteria,
	category, event_ticker, close_time, status, outcome, created_at, updated_at`

// UpsertMarket inserts or refreshes a market keyed by (venue, venue_id)
// and returns the stored row.
func (p *PostgresStore) UpsertMarket(ctx context.Context, m *types.Market) (*types.Market, error) {
	query := `
		INSERT INTO markets (
			id, venue, venue_id, question, description, resolution_criteria,
			category, event_ticker, close_time, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (venue, venue_id) DO UPDATE SET
			question = EXCLUDED.question,
			description = EXCLUDED.description,
			resolution_criteria = EXCLUDED.resolution_criteria,
			category = EXCLUDED.category,
			event_ticker = EXCLUDED.event_ticker,
			close_time = EXCLUDED.close_time,
			updated_at = now()
		RETURNING ` + marketColumns

	row := p.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		m.Venue,
		m.VenueID,
		m.Question,
		m.Description,
		m.ResolutionCriteria,
		m.Category,
		m.EventTicker,
		m.CloseTime,
		string(types.MarketActive),
	)

	stored, err := scanMarket(row)
	if err != nil {
		return nil, fmt.Errorf("upsert market %s: %w", m.VenueID, err)
	}

	return stored, nil
}

// MarketByID returns a market by row id.
func (p *PostgresStore) MarketByID(ctx context.Context, id string) (*types.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE id = $1`

	m, err := scanMarket(p.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get market: %w", err)
	}

	return m, nil
}

// MarketByVenueID returns a market by its venue ticker.
func (p *PostgresStore) MarketByVenueID(ctx context.Context, venue, venueID string) (*types.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets WHERE venue = $1 AND venue_id = $2`

	m, err := scanMarket(p.db.QueryRowContext(ctx, query, venue, venueID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get market by venue id: %w", err)
	}

	return m, nil
}

// MarketsDueResolution returns unresolved markets whose close time has
// passed.
func (p *PostgresStore) MarketsDueResolution(ctx context.Context, now time.Time) ([]types.Market, error) {
	query := `SELECT ` + marketColumns + ` FROM markets
		WHERE status != 'resolved' AND close_time < $1
		ORDER BY close_time ASC`

	rows, err := p.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query due markets: %w", err)
	}
	defer rows.Close()

	var markets []types.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due market: %w", err)
		}
		markets = append(markets, *m)
	}

	return markets, rows.Err()
}

// CloseMarket marks a market closed without a resolution (voided).
func (p *PostgresStore) CloseMarket(ctx context.Context, id string) error {
	query := `UPDATE markets SET status = 'closed', updated_at = now() WHERE id = $1`

	_, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("close market: %w", err)
	}

	return nil
}

// ResolveMarket records the final outcome of a market.
func (p *PostgresStore) ResolveMarket(ctx context.Context, id string, outcome bool) error {
	query := `UPDATE markets SET status = 'resolved', outcome = $2, updated_at = now() WHERE id = $1`

	_, err := p.db.ExecContext(ctx, query, id, outcome)
	if err != nil {
		return fmt.Errorf("resolve market: %w", err)
	}

	p.logger.Debug("market-resolved",
		zap.String("market-id", id),
		zap.Bool("outcome", outcome))

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMarket(row rowScanner) (*types.Market, error) {
	var (
		m           types.Market
		description sql.NullString
		criteria    sql.NullString
		category    sql.NullString
		eventTicker sql.NullString
		closeTime   sql.NullTime
		outcome     sql.NullBool
	)

	err := row.Scan(
		&m.ID, &m.Venue, &m.VenueID, &m.Question, &description, &criteria,
		&category, &eventTicker, &closeTime, &m.Status, &outcome,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Description = description.String
	m.ResolutionCriteria = criteria.String
	m.Category = category.String
	m.EventTicker = eventTicker.String
	if closeTime.Valid {
		m.CloseTime = closeTime.Time
	}
	if outcome.Valid {
		v := outcome.Bool
		m.Outcome = &v
	}

	return &m, nil
}
