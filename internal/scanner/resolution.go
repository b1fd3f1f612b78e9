package scanner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/calc"
	"github.com/mselser95/kalshi-edge/internal/notifier"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// estimateLookback is how far back a market's estimate is still
// attributable when scoring its resolution.
const estimateLookback = 14 * 24 * time.Hour

// RunResolutionCheck settles every tracked market past its close time:
// voided markets are closed with trades cancelled, resolved markets
// realize PnL and land in the performance log.
func (s *Scanner) RunResolutionCheck(ctx context.Context) error {
	due, err := s.store.MarketsDueResolution(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("query due markets: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Info("resolution-check-started", zap.Int("due", len(due)))

	tickers := make([]string, len(due))
	for i := range due {
		tickers[i] = due[i].VenueID
	}
	states, err := s.venue.CheckResolutionsBatch(ctx, tickers)
	if err != nil {
		return fmt.Errorf("check resolutions: %w", err)
	}

	var failures int
	for i := range due {
		market := &due[i]
		if err := s.resolveOne(ctx, market, states[market.VenueID]); err != nil {
			failures++
			s.logger.Warn("market-resolution-failed",
				zap.String("ticker", market.VenueID), zap.Error(err))
		}
	}

	if failures > 0 {
		return fmt.Errorf("resolution check: %d of %d markets failed", failures, len(due))
	}

	return nil
}

func (s *Scanner) resolveOne(ctx context.Context, market *types.Market, state types.ResolutionState) error {
	switch state {
	case types.ResolutionVoided:
		return s.voidMarket(ctx, market)
	case types.ResolutionResolvedYes, types.ResolutionResolvedNo:
		return s.settleMarket(ctx, market, state == types.ResolutionResolvedYes)
	default:
		return nil
	}
}

// voidMarket closes a cancelled market without scoring it.
func (s *Scanner) voidMarket(ctx context.Context, market *types.Market) error {
	if err := s.store.CloseMarket(ctx, market.ID); err != nil {
		return err
	}
	if _, err := s.store.ExpireRecommendationsForMarket(ctx, market.ID); err != nil {
		return err
	}

	trades, err := s.store.OpenTradesForMarket(ctx, market.ID)
	if err != nil {
		return err
	}
	for i := range trades {
		if err := s.store.CancelTrade(ctx, trades[i].ID); err != nil {
			return err
		}
	}

	MarketsResolvedTotal.WithLabelValues("voided").Inc()
	s.logger.Info("market-voided",
		zap.String("ticker", market.VenueID),
		zap.Int("trades-canceled", len(trades)))

	if s.notify != nil {
		s.notify.SendResolution(ctx, &notifier.ResolutionReport{
			Question: market.Question,
			Outcome:  "voided",
			HadTrade: len(trades) > 0,
		})
	}

	return nil
}

// settleMarket realizes PnL on open trades and scores the estimate.
func (s *Scanner) settleMarket(ctx context.Context, market *types.Market, outcomeYes bool) error {
	trades, err := s.store.OpenTradesForMarket(ctx, market.ID)
	if err != nil {
		return err
	}

	var totalPnL float64
	for i := range trades {
		trade := &trades[i]
		// Fees come off the realized result on both wins and losses.
		pnl := calc.PnL(trade.Amount, trade.Price, trade.Direction, outcomeYes) - trade.FeesPaid
		if err := s.store.CloseTrade(ctx, trade.ID, pnl); err != nil {
			return err
		}
		totalPnL += pnl
	}

	if err := s.store.ResolveMarket(ctx, market.ID, outcomeYes); err != nil {
		return err
	}
	if _, err := s.store.ResolveRecommendationsForMarket(ctx, market.ID); err != nil {
		return err
	}

	if err := s.scoreResolution(ctx, market, outcomeYes, totalPnL); err != nil {
		s.logger.Warn("performance-scoring-failed",
			zap.String("ticker", market.VenueID), zap.Error(err))
	}

	outcome := "no"
	if outcomeYes {
		outcome = "yes"
	}
	MarketsResolvedTotal.WithLabelValues(outcome).Inc()
	s.logger.Info("market-resolved",
		zap.String("ticker", market.VenueID),
		zap.String("outcome", outcome),
		zap.Float64("pnl", totalPnL))

	if s.notify != nil {
		s.notify.SendResolution(ctx, &notifier.ResolutionReport{
			Question: market.Question,
			Outcome:  outcome,
			PnL:      totalPnL,
			HadTrade: len(trades) > 0,
		})
	}

	return nil
}

// scoreResolution writes the idempotent performance row that feeds
// calibration. Markets that were never estimated are not scored. The
// row links the market's recommendation and carries the simulated PnL
// its Kelly stake would have realized, traded or not.
func (s *Scanner) scoreResolution(ctx context.Context, market *types.Market, outcomeYes bool, pnl float64) error {
	estimate, err := s.store.RecentEstimate(ctx, market.ID, estimateLookback)
	if err != nil {
		// Nothing to score against.
		return nil
	}

	snapshot, err := s.store.LatestSnapshot(ctx, market.ID)
	if err != nil {
		return err
	}

	var recommendationID *string
	var simulated *float64
	if rec, err := s.store.LatestRecommendationForMarket(ctx, market.ID); err == nil {
		recommendationID = &rec.ID
		bankroll := s.settings.Resolve(ctx).Bankroll
		v := calc.PnL(rec.KellyFraction*bankroll, rec.MarketPrice, rec.Direction, outcomeYes)
		simulated = &v
	}

	inserted, err := s.store.InsertPerformance(ctx, &types.PerformanceRecord{
		MarketID:         market.ID,
		RecommendationID: recommendationID,
		AIProbability:    estimate.Probability,
		MarketPrice:      snapshot.PriceYes,
		ActualOutcome:    outcomeYes,
		PnL:              pnl,
		SimulatedPnL:     simulated,
		BrierScore:       calc.Brier(estimate.Probability, outcomeYes),
		ResolvedAt:       time.Now(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		s.logger.Debug("performance-already-scored", zap.String("market-id", market.ID))
	}

	return nil
}
