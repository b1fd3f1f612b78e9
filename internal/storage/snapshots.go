package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

const snapshotColumns = `id, market_id, price_yes, price_no, volume, liquidity, captured_at`

// InsertSnapshot stores a price observation and returns the stored row.
func (p *PostgresStore) InsertSnapshot(ctx context.Context, s *types.Snapshot) (*types.Snapshot, error) {
	query := `
		INSERT INTO market_snapshots (id, market_id, price_yes, price_no, volume, liquidity, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING ` + snapshotColumns

	row := p.db.QueryRowContext(ctx, query,
		uuid.NewString(), s.MarketID, s.PriceYes, s.PriceNo, s.Volume, s.Liquidity)

	stored, err := scanSnapshot(row)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	return stored, nil
}

// LatestSnapshot returns the most recent snapshot for a market.
func (p *PostgresStore) LatestSnapshot(ctx context.Context, marketID string) (*types.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM market_snapshots
		WHERE market_id = $1 ORDER BY captured_at DESC LIMIT 1`

	s, err := scanSnapshot(p.db.QueryRowContext(ctx, query, marketID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}

	return s, nil
}

// SnapshotBefore returns the latest snapshot captured at or before t,
// used to recover the price an estimate was made against.
func (p *PostgresStore) SnapshotBefore(ctx context.Context, marketID string, t time.Time) (*types.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM market_snapshots
		WHERE market_id = $1 AND captured_at <= $2
		ORDER BY captured_at DESC LIMIT 1`

	s, err := scanSnapshot(p.db.QueryRowContext(ctx, query, marketID, t))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot before: %w", err)
	}

	return s, nil
}

// LastSnapshotTime returns the capture time of the newest snapshot,
// a proxy for the last successful scan.
func (p *PostgresStore) LastSnapshotTime(ctx context.Context) (time.Time, error) {
	query := `SELECT captured_at FROM market_snapshots ORDER BY captured_at DESC LIMIT 1`

	var t time.Time
	err := p.db.QueryRowContext(ctx, query).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, types.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last snapshot time: %w", err)
	}

	return t, nil
}

func scanSnapshot(row rowScanner) (*types.Snapshot, error) {
	var (
		s         types.Snapshot
		volume    sql.NullFloat64
		liquidity sql.NullFloat64
	)

	err := row.Scan(&s.ID, &s.MarketID, &s.PriceYes, &s.PriceNo, &volume, &liquidity, &s.CapturedAt)
	if err != nil {
		return nil, err
	}

	s.Volume = volume.Float64
	s.Liquidity = liquidity.Float64

	return &s, nil
}
