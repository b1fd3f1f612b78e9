// Package storage persists markets, snapshots, estimates,
// recommendations, trades and resolved performance to PostgreSQL.
package storage

import (
	"context"
	"time"

	"github.com/mselser95/kalshi-edge/pkg/types"
)

// Store is the persistence interface used by the pipeline.
type Store interface {
	Ping(ctx context.Context) error
	Close() error

	// Markets
	UpsertMarket(ctx context.Context, m *types.Market) (*types.Market, error)
	MarketByID(ctx context.Context, id string) (*types.Market, error)
	MarketByVenueID(ctx context.Context, venue, venueID string) (*types.Market, error)
	MarketsDueResolution(ctx context.Context, now time.Time) ([]types.Market, error)
	CloseMarket(ctx context.Context, id string) error
	ResolveMarket(ctx context.Context, id string, outcome bool) error

	// Snapshots
	InsertSnapshot(ctx context.Context, s *types.Snapshot) (*types.Snapshot, error)
	LatestSnapshot(ctx context.Context, marketID string) (*types.Snapshot, error)
	SnapshotBefore(ctx context.Context, marketID string, t time.Time) (*types.Snapshot, error)
	LastSnapshotTime(ctx context.Context) (time.Time, error)

	// Estimates
	InsertEstimate(ctx context.Context, e *types.Estimate) (*types.Estimate, error)
	RecentEstimate(ctx context.Context, marketID string, maxAge time.Duration) (*types.Estimate, error)

	// Recommendations
	InsertRecommendation(ctx context.Context, r *types.Recommendation) (*types.Recommendation, error)
	ActiveRecommendations(ctx context.Context) ([]types.Recommendation, error)
	UntradedActiveRecommendations(ctx context.Context) ([]types.Recommendation, error)
	LatestRecommendationForMarket(ctx context.Context, marketID string) (*types.Recommendation, error)
	ExpireRecommendationsForMarket(ctx context.Context, marketID string) (int64, error)
	ResolveRecommendationsForMarket(ctx context.Context, marketID string) (int64, error)

	// Trades
	InsertTrade(ctx context.Context, t *types.Trade) (*types.Trade, error)
	TradeByVenueID(ctx context.Context, venueTradeID string) (*types.Trade, error)
	OpenTrades(ctx context.Context) ([]types.Trade, error)
	OpenTradeForMarket(ctx context.Context, marketID string, dir types.Direction) (*types.Trade, error)
	OpenTradesForMarket(ctx context.Context, marketID string) ([]types.Trade, error)
	UpdateTradeFill(ctx context.Context, id, venueTradeID string, price float64, contracts int, amount, fees float64) error
	CloseTrade(ctx context.Context, id string, pnl float64) error
	CancelTrade(ctx context.Context, id string) error
	OpenExposure(ctx context.Context) (float64, error)

	// Performance
	InsertPerformance(ctx context.Context, p *types.PerformanceRecord) (bool, error)
	PerformanceAggregate(ctx context.Context) (*types.PerformanceAggregate, error)
	CalibrationBuckets(ctx context.Context, bucketSize float64) ([]types.CalibrationBucket, error)
	CalibrationStats(ctx context.Context) (*types.CalibrationStats, error)

	// Research costs
	InsertCost(ctx context.Context, c *types.ResearchCost) error
	CostSince(ctx context.Context, since time.Time) (float64, error)

	// Reconciliation log
	InsertSyncLog(ctx context.Context, r *types.SyncResult) error

	// Runtime config overrides
	AllConfig(ctx context.Context) (map[string]string, error)
	SetConfig(ctx context.Context, key, value string) error
}
