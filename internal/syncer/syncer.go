// Package syncer reconciles venue fills and orders with local trades
// so auto-placed orders and their fills never double-count.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/exchange"
	"github.com/mselser95/kalshi-edge/internal/storage"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

const (
	venueName = "kalshi"

	fillFetchLimit  = 500
	orderFetchLimit = 500
)

// Venue is the slice of the exchange client the syncer uses.
type Venue interface {
	FetchFills(ctx context.Context, limit int) ([]exchange.Fill, error)
	FetchOrders(ctx context.Context, status string, limit int) ([]exchange.Order, error)
}

// Syncer pulls executed fills and canceled orders from the venue and
// folds them into the local trade ledger.
type Syncer struct {
	store  storage.Store
	venue  Venue
	logger *zap.Logger
}

// Config holds syncer dependencies.
type Config struct {
	Store  storage.Store
	Venue  Venue
	Logger *zap.Logger
}

// New creates a syncer.
func New(cfg *Config) (*Syncer, error) {
	if cfg.Store == nil || cfg.Venue == nil {
		return nil, fmt.Errorf("store and venue are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Syncer{
		store:  cfg.Store,
		venue:  cfg.Venue,
		logger: cfg.Logger,
	}, nil
}

// Run executes one reconciliation pass: import fills, then cancel
// local trades whose orders were canceled on the venue. The pass is
// logged to the sync log even when partial.
func (s *Syncer) Run(ctx context.Context) (*types.SyncResult, error) {
	SyncsTotal.Inc()
	result := &types.SyncResult{RanAt: time.Now().UTC()}

	fills, err := s.venue.FetchFills(ctx, fillFetchLimit)
	if err != nil {
		SyncFailuresTotal.Inc()
		return nil, fmt.Errorf("sync fills: %w", err)
	}
	result.FillsSeen = len(fills)

	recsByMarket, err := s.activeRecommendationIndex(ctx)
	if err != nil {
		s.logger.Warn("sync-recommendation-index-failed", zap.Error(err))
		recsByMarket = map[string]string{}
	}

	for _, fill := range fills {
		if err := s.reconcileFill(ctx, &fill, recsByMarket, result); err != nil {
			SyncFailuresTotal.Inc()
			return result, err
		}
	}

	if err := s.reconcileCanceledOrders(ctx, result); err != nil {
		SyncFailuresTotal.Inc()
		return result, err
	}

	if err := s.store.InsertSyncLog(ctx, result); err != nil {
		s.logger.Warn("sync-log-write-failed", zap.Error(err))
	}

	TradesCreatedTotal.Add(float64(result.TradesCreated))
	TradesUpdatedTotal.Add(float64(result.TradesUpdated))
	TradesCanceledTotal.Add(float64(result.TradesCanceled))

	s.logger.Info("trade-sync-completed",
		zap.Int("fills-seen", result.FillsSeen),
		zap.Int("created", result.TradesCreated),
		zap.Int("updated", result.TradesUpdated),
		zap.Int("canceled", result.TradesCanceled),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

// reconcileFill folds one venue fill into the trade ledger. Fills for
// untracked markets and fills already imported are skipped; a fill
// matching an open auto-placed order trade rewrites that trade in
// place, anything else becomes a new trade.
func (s *Syncer) reconcileFill(ctx context.Context, fill *exchange.Fill, recsByMarket map[string]string, result *types.SyncResult) error {
	if fill.FillID == "" {
		result.Skipped++
		return nil
	}

	venueTradeID := "fill_" + fill.FillID

	_, err := s.store.TradeByVenueID(ctx, venueTradeID)
	if err == nil {
		result.Skipped++
		return nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("lookup trade %s: %w", venueTradeID, err)
	}

	market, err := s.store.MarketByVenueID(ctx, venueName, fill.Ticker)
	if errors.Is(err, types.ErrNotFound) {
		s.logger.Debug("sync-untracked-market-skipped", zap.String("ticker", fill.Ticker))
		result.Skipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup market %s: %w", fill.Ticker, err)
	}

	direction := types.DirectionYes
	if strings.EqualFold(fill.Side, "no") {
		direction = types.DirectionNo
	}

	// Local trades always carry the YES price; the dollar amount is what
	// the entered side actually cost. The venue reports the fee in cents.
	priceYes := float64(fill.YesPrice) / 100
	entryCents := fill.YesPrice
	if direction == types.DirectionNo {
		entryCents = fill.NoPrice
	}
	amount := float64(fill.Count) * float64(entryCents) / 100
	fees := float64(fill.FeeCost) / 100

	if open, err := s.store.OpenTradeForMarket(ctx, market.ID, direction); err == nil {
		if strings.HasPrefix(open.VenueTradeID, "order_") {
			err := s.store.UpdateTradeFill(ctx, open.ID, venueTradeID, priceYes, fill.Count, amount, fees)
			if err != nil {
				return fmt.Errorf("match fill %s to trade %s: %w", fill.FillID, open.ID, err)
			}
			result.TradesUpdated++
			s.logger.Info("sync-fill-matched-to-order",
				zap.String("fill-id", fill.FillID),
				zap.String("trade-id", open.ID))
			return nil
		}
	} else if !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("lookup open trade for %s: %w", market.ID, err)
	}

	trade := &types.Trade{
		MarketID:     market.ID,
		VenueTradeID: venueTradeID,
		Direction:    direction,
		Price:        priceYes,
		Contracts:    fill.Count,
		Amount:       amount,
		FeesPaid:     fees,
		Status:       types.TradeOpen,
	}
	if recID, ok := recsByMarket[market.ID]; ok {
		trade.RecommendationID = &recID
	}

	if _, err := s.store.InsertTrade(ctx, trade); err != nil {
		return fmt.Errorf("insert synced trade %s: %w", venueTradeID, err)
	}
	result.TradesCreated++
	s.logger.Info("sync-trade-imported",
		zap.String("fill-id", fill.FillID),
		zap.String("ticker", fill.Ticker),
		zap.String("direction", string(direction)),
		zap.Int("contracts", fill.Count))

	return nil
}

// reconcileCanceledOrders cancels local open trades whose venue order
// was canceled before executing.
func (s *Syncer) reconcileCanceledOrders(ctx context.Context, result *types.SyncResult) error {
	open, err := s.store.OpenTrades(ctx)
	if err != nil {
		return fmt.Errorf("list open trades: %w", err)
	}

	hasOrderTrades := false
	for _, t := range open {
		if strings.HasPrefix(t.VenueTradeID, "order_") {
			hasOrderTrades = true
			break
		}
	}
	if !hasOrderTrades {
		return nil
	}

	canceled, err := s.venue.FetchOrders(ctx, "canceled", orderFetchLimit)
	if err != nil {
		return fmt.Errorf("fetch canceled orders: %w", err)
	}

	canceledIDs := make(map[string]struct{}, len(canceled))
	for _, o := range canceled {
		canceledIDs["order_"+o.OrderID] = struct{}{}
	}

	for _, t := range open {
		if _, ok := canceledIDs[t.VenueTradeID]; !ok {
			continue
		}
		if err := s.store.CancelTrade(ctx, t.ID); err != nil {
			return fmt.Errorf("cancel trade %s: %w", t.ID, err)
		}
		result.TradesCanceled++
		s.logger.Info("sync-order-canceled",
			zap.String("trade-id", t.ID),
			zap.String("venue-trade-id", t.VenueTradeID))
	}

	return nil
}

func (s *Syncer) activeRecommendationIndex(ctx context.Context) (map[string]string, error) {
	recs, err := s.store.ActiveRecommendations(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]string, len(recs))
	for _, r := range recs {
		index[r.MarketID] = r.ID
	}

	return index, nil
}
