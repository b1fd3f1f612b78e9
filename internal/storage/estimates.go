package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

const estimateColumns = `id, market_id, probability, confidence, reasoning,
	key_evidence, key_uncertainties, model, created_at`

// InsertEstimate stores a model estimate and returns the stored row.
func (p *PostgresStore) InsertEstimate(ctx context.Context, e *types.Estimate) (*types.Estimate, error) {
	query := `
		INSERT INTO ai_estimates (id, market_id, probability, confidence, reasoning,
			key_evidence, key_uncertainties, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING ` + estimateColumns

	row := p.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		e.MarketID,
		e.Probability,
		string(e.Confidence),
		e.Reasoning,
		pq.Array(e.KeyEvidence),
		pq.Array(e.KeyUncertainties),
		e.Model,
	)

	stored, err := scanEstimate(row)
	if err != nil {
		return nil, fmt.Errorf("insert estimate: %w", err)
	}

	return stored, nil
}

// RecentEstimate returns the newest estimate for a market no older than
// maxAge, or ErrNotFound.
func (p *PostgresStore) RecentEstimate(ctx context.Context, marketID string, maxAge time.Duration) (*types.Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM ai_estimates
		WHERE market_id = $1 AND created_at > $2
		ORDER BY created_at DESC LIMIT 1`

	cutoff := time.Now().Add(-maxAge)
	e, err := scanEstimate(p.db.QueryRowContext(ctx, query, marketID, cutoff))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("recent estimate: %w", err)
	}

	return e, nil
}

func scanEstimate(row rowScanner) (*types.Estimate, error) {
	var (
		e             types.Estimate
		evidence      pq.StringArray
		uncertainties pq.StringArray
	)

	err := row.Scan(&e.ID, &e.MarketID, &e.Probability, &e.Confidence, &e.Reasoning,
		&evidence, &uncertainties, &e.Model, &e.CreatedAt)
	if err != nil {
		return nil, err
	}

	e.KeyEvidence = []string(evidence)
	e.KeyUncertainties = []string(uncertainties)

	return &e, nil
}
