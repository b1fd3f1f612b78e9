package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mselser95/kalshi-edge/pkg/types"
	"go.uber.org/zap"
)

// InsertPerformance records a resolved market's score. Inserts are
// idempotent per market: if a row already exists the insert is skipped
// and (false, nil) is returned, so resolution passes can be re-run.
func (p *PostgresStore) InsertPerformance(ctx context.Context, rec *types.PerformanceRecord) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM performance_log WHERE market_id = $1)`,
		rec.MarketID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check performance exists: %w", err)
	}
	if exists {
		p.logger.Debug("performance-already-recorded", zap.String("market-id", rec.MarketID))
		return false, nil
	}

	query := `
		INSERT INTO performance_log (id, market_id, recommendation_id, ai_probability,
			market_price, actual_outcome, pnl, simulated_pnl, brier_score, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`

	_, err = p.db.ExecContext(ctx, query,
		uuid.NewString(),
		rec.MarketID,
		rec.RecommendationID,
		rec.AIProbability,
		rec.MarketPrice,
		rec.ActualOutcome,
		rec.PnL,
		rec.SimulatedPnL,
		rec.BrierScore,
	)
	if err != nil {
		return false, fmt.Errorf("insert performance: %w", err)
	}

	return true, nil
}

// PerformanceAggregate summarizes all resolved performance rows.
func (p *PostgresStore) PerformanceAggregate(ctx context.Context) (*types.PerformanceAggregate, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(CASE WHEN (ai_probability >= 0.5) = actual_outcome THEN 1.0 ELSE 0.0 END), 0),
			COALESCE(AVG(brier_score), 0),
			COALESCE(SUM(pnl), 0),
			COALESCE(AVG(ABS(ai_probability - market_price)), 0)
		FROM performance_log`

	var agg types.PerformanceAggregate
	err := p.db.QueryRowContext(ctx, query).Scan(
		&agg.TotalResolved, &agg.HitRate, &agg.AvgBrier, &agg.TotalPnL, &agg.AvgEdge)
	if err != nil {
		return nil, fmt.Errorf("performance aggregate: %w", err)
	}

	return &agg, nil
}

// CalibrationBuckets groups resolved estimates into probability buckets
// of the given width and compares predicted averages against realized
// frequencies.
func (p *PostgresStore) CalibrationBuckets(ctx context.Context, bucketSize float64) ([]types.CalibrationBucket, error) {
	if bucketSize <= 0 || bucketSize > 1 {
		return nil, fmt.Errorf("invalid bucket size %v", bucketSize)
	}

	query := `
		SELECT
			FLOOR(LEAST(ai_probability, 0.999999) / $1) * $1 AS bucket_min,
			AVG(ai_probability),
			AVG(CASE WHEN actual_outcome THEN 1.0 ELSE 0.0 END),
			COUNT(*)
		FROM performance_log
		GROUP BY bucket_min
		ORDER BY bucket_min ASC`

	rows, err := p.db.QueryContext(ctx, query, bucketSize)
	if err != nil {
		return nil, fmt.Errorf("calibration buckets: %w", err)
	}
	defer rows.Close()

	var buckets []types.CalibrationBucket
	for rows.Next() {
		var b types.CalibrationBucket
		err := rows.Scan(&b.BucketMin, &b.PredictedAvg, &b.ActualFrequency, &b.Count)
		if err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		b.BucketMax = b.BucketMin + bucketSize
		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

// CalibrationStats summarizes resolved estimates for prompt feedback.
func (p *PostgresStore) CalibrationStats(ctx context.Context) (*types.CalibrationStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(AVG(CASE WHEN (ai_probability >= 0.5) = actual_outcome THEN 1.0 ELSE 0.0 END), 0),
			COALESCE(AVG(brier_score), 0),
			COALESCE(AVG(CASE WHEN (ai_probability >= 0.5) != actual_outcome
				THEN ABS(ai_probability - 0.5) END), 0),
			COALESCE(AVG(CASE WHEN (ai_probability >= 0.5) = actual_outcome
				THEN ABS(ai_probability - 0.5) END), 0)
		FROM performance_log`

	var stats types.CalibrationStats
	err := p.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalResolved, &stats.HitRate, &stats.AvgBrier,
		&stats.AvgMissDistance, &stats.AvgHitDistance)
	if err != nil {
		return nil, fmt.Errorf("calibration stats: %w", err)
	}

	return &stats, nil
}
