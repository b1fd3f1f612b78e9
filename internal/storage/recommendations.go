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

const recommendationColumns = `id, market_id, estimate_id, snapshot_id, direction,
	market_price, ai_probability, edge, ev, kelly_fraction, status, created_at`

// InsertRecommendation expires any prior active recommendation for the
// market and inserts the new one in a single transaction, so at most
// one active recommendation exists per market at any time.
func (p *PostgresStore) InsertRecommendation(ctx context.Context, r *types.Recommendation) (*types.Recommendation, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`UPDATE recommendations SET status = 'expired' WHERE market_id = $1 AND status = 'active'`,
		r.MarketID)
	if err != nil {
		return nil, fmt.Errorf("expire prior recommendations: %w", err)
	}

	query := `
		INSERT INTO recommendations (id, market_id, estimate_id, snapshot_id, direction,
			market_price, ai_probability, edge, ev, kelly_fraction, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'active', now())
		RETURNING ` + recommendationColumns

	row := tx.QueryRowContext(ctx, query,
		uuid.NewString(),
		r.MarketID,
		r.EstimateID,
		r.SnapshotID,
		string(r.Direction),
		r.MarketPrice,
		r.AIProbability,
		r.Edge,
		r.EV,
		r.KellyFraction,
	)

	stored, err := scanRecommendation(row)
	if err != nil {
		return nil, fmt.Errorf("insert recommendation: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("commit recommendation: %w", err)
	}

	p.logger.Debug("recommendation-stored",
		zap.String("market-id", r.MarketID),
		zap.String("direction", string(r.Direction)),
		zap.Float64("ev", r.EV))

	return stored, nil
}

// ActiveRecommendations returns all active recommendations.
func (p *PostgresStore) ActiveRecommendations(ctx context.Context) ([]types.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations
		WHERE status = 'active' ORDER BY created_at DESC`

	return p.queryRecommendations(ctx, query)
}

// UntradedActiveRecommendations returns active recommendations with no
// associated trade, the candidates for the post-scan sweep.
func (p *PostgresStore) UntradedActiveRecommendations(ctx context.Context) ([]types.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations r
		WHERE r.status = 'active'
		AND NOT EXISTS (SELECT 1 FROM trades t WHERE t.recommendation_id = r.id)
		ORDER BY r.created_at DESC`

	return p.queryRecommendations(ctx, query)
}

// LatestRecommendationForMarket returns the market's most recent
// recommendation regardless of status, or ErrNotFound. Used at
// settlement, after the active recommendation has already been
// transitioned.
func (p *PostgresStore) LatestRecommendationForMarket(ctx context.Context, marketID string) (*types.Recommendation, error) {
	query := `SELECT ` + recommendationColumns + ` FROM recommendations
		WHERE market_id = $1 ORDER BY created_at DESC LIMIT 1`

	r, err := scanRecommendation(p.db.QueryRowContext(ctx, query, marketID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest recommendation for market: %w", err)
	}

	return r, nil
}

// ExpireRecommendationsForMarket expires all active recommendations for
// a market and returns the count.
func (p *PostgresStore) ExpireRecommendationsForMarket(ctx context.Context, marketID string) (int64, error) {
	return p.setRecommendationStatus(ctx, marketID, "expired")
}

// ResolveRecommendationsForMarket resolves all active recommendations
// for a market and returns the count.
func (p *PostgresStore) ResolveRecommendationsForMarket(ctx context.Context, marketID string) (int64, error) {
	return p.setRecommendationStatus(ctx, marketID, "resolved")
}

func (p *PostgresStore) setRecommendationStatus(ctx context.Context, marketID, status string) (int64, error) {
	query := `UPDATE recommendations SET status = $2 WHERE market_id = $1 AND status = 'active'`

	res, err := p.db.ExecContext(ctx, query, marketID, status)
	if err != nil {
		return 0, fmt.Errorf("set recommendations %s: %w", status, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	return n, nil
}

func (p *PostgresStore) queryRecommendations(ctx context.Context, query string, args ...interface{}) ([]types.Recommendation, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []types.Recommendation
	for rows.Next() {
		r, err := scanRecommendation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		recs = append(recs, *r)
	}

	return recs, rows.Err()
}

func scanRecommendation(row rowScanner) (*types.Recommendation, error) {
	var r types.Recommendation

	err := row.Scan(&r.ID, &r.MarketID, &r.EstimateID, &r.SnapshotID, &r.Direction,
		&r.MarketPrice, &r.AIProbability, &r.Edge, &r.EV, &r.KellyFraction,
		&r.Status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &r, nil
}
