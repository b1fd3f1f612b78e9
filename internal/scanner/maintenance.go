package scanner

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/calc"
	"github.com/mselser95/kalshi-edge/internal/notifier"
	"github.com/mselser95/kalshi-edge/internal/research"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// sweep places the trades the scan missed: active recommendations with
// no associated trade are re-verified against the latest price, sized
// with the conservative medium-confidence Kelly, and bought. Runs only
// when auto-trading is on.
func (s *Scanner) sweep(ctx context.Context, settings *config.Settings, summary *Summary) {
	if !settings.AutoTradeEnabled {
		return
	}

	recs, err := s.store.UntradedActiveRecommendations(ctx)
	if err != nil {
		s.logger.Warn("sweep-query-failed", zap.Error(err))
		return
	}

	var placed int
	for i := range recs {
		rec := &recs[i]

		traded, err := s.sweepOne(ctx, rec, settings, summary)
		if err != nil {
			summary.Errors++
			s.logger.Warn("sweep-trade-failed",
				zap.String("market-id", rec.MarketID), zap.Error(err))
			continue
		}
		if traded {
			placed++
		}
	}

	if len(recs) > 0 {
		s.logger.Info("sweep-completed",
			zap.Int("untraded", len(recs)),
			zap.Int("placed", placed))
	}
}

// sweepOne re-verifies one untraded recommendation and places the order
// when the edge still clears the auto-trade floor at the current price.
func (s *Scanner) sweepOne(ctx context.Context, rec *types.Recommendation, settings *config.Settings, summary *Summary) (bool, error) {
	market, err := s.store.MarketByID(ctx, rec.MarketID)
	if err != nil {
		return false, err
	}
	if market.Status != types.MarketActive {
		return false, nil
	}

	snapshot, err := s.store.LatestSnapshot(ctx, rec.MarketID)
	if err != nil {
		return false, err
	}

	opp, ok := calc.Evaluate(rec.AIProbability, snapshot.PriceYes, settings.MinEdgeThreshold)
	if !ok || opp.Direction != rec.Direction {
		return false, nil
	}
	if !calc.ShouldRecommendFlat(opp.EV, settings.AutoTradeMinEV) {
		return false, nil
	}

	// The original estimate's confidence is stale by now; size at medium.
	kelly := calc.Kelly(opp, snapshot.PriceYes, types.ConfidenceMedium,
		settings.KellyFraction, settings.MaxSingleBetFraction)
	bet := calc.BetSize(kelly, settings.Bankroll, settings.MaxBet)
	if bet < 1 {
		return false, nil
	}

	contracts := calc.Contracts(bet, snapshot.PriceYes, opp.Direction)
	if contracts <= 0 {
		return false, nil
	}

	exposure, err := s.store.OpenExposure(ctx)
	if err != nil {
		return false, err
	}

	entry := snapshot.PriceYes
	if opp.Direction == types.DirectionNo {
		entry = 1 - snapshot.PriceYes
	}
	entryCents := calc.EntryCents(entry)
	cost := float64(contracts) * float64(entryCents) / 100

	if exposure+cost > settings.MaxExposureFraction*settings.Bankroll {
		s.logger.Info("sweep-skipped-exposure-cap",
			zap.String("ticker", market.VenueID),
			zap.Float64("open-exposure", exposure),
			zap.Float64("cost", cost))
		return false, nil
	}

	order, err := s.venue.PlaceOrder(ctx, market.VenueID, string(opp.Direction),
		contracts, calc.EntryCents(snapshot.PriceYes))
	if err != nil {
		return false, err
	}

	recID := rec.ID
	_, err = s.store.InsertTrade(ctx, &types.Trade{
		MarketID:         rec.MarketID,
		RecommendationID: &recID,
		VenueTradeID:     "order_" + order.OrderID,
		Direction:        opp.Direction,
		Price:            snapshot.PriceYes,
		Contracts:        contracts,
		Amount:           cost,
		FeesPaid:         float64(contracts) * calc.Fee(float64(entryCents)/100),
		Status:           types.TradeOpen,
	})
	if err != nil {
		return false, err
	}

	summary.TradesPlaced++
	TradesPlacedTotal.Inc()
	s.logger.Info("sweep-trade-placed",
		zap.String("ticker", market.VenueID),
		zap.String("order-id", order.OrderID),
		zap.String("direction", string(opp.Direction)),
		zap.Int("contracts", contracts),
		zap.Float64("cost", cost))

	if s.notify != nil {
		s.notify.SendRecommendation(ctx, &notifier.RecommendationReport{
			Question:      market.Question,
			Direction:     opp.Direction,
			MarketPrice:   snapshot.PriceYes,
			AIProbability: rec.AIProbability,
			EV:            opp.EV,
			Confidence:    types.ConfidenceMedium,
			Sweep:         true,
		})
	}

	return true, nil
}

// movedMarket is a refreshed market whose price shifted enough since
// the previous snapshot to invalidate its estimate.
type movedMarket struct {
	market   *types.Market
	snapshot *types.Snapshot
	delta    float64
}

// RunPriceRefresh snapshots current prices for every market with an
// active recommendation, then re-estimates the ones whose price moved
// past the re-estimate trigger since the previous snapshot.
func (s *Scanner) RunPriceRefresh(ctx context.Context) error {
	settings := s.settings.Resolve(ctx)

	recs, err := s.store.ActiveRecommendations(ctx)
	if err != nil {
		return fmt.Errorf("query active recommendations: %w", err)
	}

	seen := make(map[string]bool, len(recs))
	var refreshed int
	var moved []movedMarket
	for i := range recs {
		marketID := recs[i].MarketID
		if seen[marketID] {
			continue
		}
		seen[marketID] = true

		market, err := s.store.MarketByID(ctx, marketID)
		if err != nil {
			continue
		}

		prior, priorErr := s.store.LatestSnapshot(ctx, marketID)

		vm, err := s.venue.GetMarket(ctx, market.VenueID)
		if err != nil {
			s.logger.Debug("price-refresh-skipped",
				zap.String("ticker", market.VenueID), zap.Error(err))
			continue
		}

		snapshot, err := s.store.InsertSnapshot(ctx, &types.Snapshot{
			MarketID:  marketID,
			PriceYes:  vm.PriceYes,
			PriceNo:   1 - vm.PriceYes,
			Volume:    vm.Volume,
			Liquidity: vm.Liquidity,
		})
		if err != nil {
			s.logger.Warn("price-refresh-snapshot-failed",
				zap.String("ticker", market.VenueID), zap.Error(err))
			continue
		}
		refreshed++

		if priorErr == nil {
			delta := math.Abs(snapshot.PriceYes - prior.PriceYes)
			if delta >= settings.ReEstimateTrigger {
				moved = append(moved, movedMarket{market: market, snapshot: snapshot, delta: delta})
			}
		}
	}

	s.logger.Info("price-refresh-completed",
		zap.Int("markets", len(seen)),
		zap.Int("refreshed", refreshed),
		zap.Int("moved", len(moved)))

	for i := range moved {
		if err := s.reEstimate(ctx, &moved[i], &settings); err != nil {
			s.logger.Warn("re-estimate-failed",
				zap.String("ticker", moved[i].market.VenueID), zap.Error(err))
		}
	}

	return nil
}

// reEstimate re-buys the blind estimate for a market whose price moved
// materially, replacing its recommendation when the fresh numbers still
// clear the gates.
func (s *Scanner) reEstimate(ctx context.Context, m *movedMarket, settings *config.Settings) error {
	market := m.market
	input := &types.BlindInput{
		Question:           market.Question,
		ResolutionCriteria: market.ResolutionCriteria,
		CloseDate:          market.CloseTime.UTC().Format("2006-01-02"),
		Category:           market.Category,
	}

	result, err := s.research.Estimate(ctx, input, research.EstimateOptions{
		Volume:                   m.snapshot.Volume,
		HighValueVolumeThreshold: settings.HighValueVolumeThreshold,
		WebSearchMaxUses:         settings.WebSearchMaxUses,
	})
	if err != nil {
		return fmt.Errorf("estimate: %w", err)
	}

	estimate, err := s.store.InsertEstimate(ctx, &types.Estimate{
		MarketID:         market.ID,
		Probability:      result.Probability,
		Confidence:       result.Confidence,
		Reasoning:        result.Reasoning,
		KeyEvidence:      result.KeyEvidence,
		KeyUncertainties: result.KeyUncertainties,
		Model:            result.Model,
	})
	if err != nil {
		return err
	}

	if err := s.store.InsertCost(ctx, &types.ResearchCost{
		MarketID:     market.ID,
		Model:        result.Model,
		Purpose:      "re-estimate",
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		CostUSD:      result.CostUSD,
	}); err != nil {
		s.logger.Warn("cost-log-failed", zap.Error(err))
	}

	ReEstimatesTotal.Inc()
	s.logger.Info("market-re-estimated",
		zap.String("ticker", market.VenueID),
		zap.Float64("price-move", m.delta),
		zap.Float64("probability", result.Probability))

	opp, ok := calc.Evaluate(result.Probability, m.snapshot.PriceYes, settings.MinEdgeThreshold)
	if !ok {
		return nil
	}
	if !calc.ShouldRecommend(opp.EV, result.Probability, result.Confidence) {
		return nil
	}

	kelly := calc.Kelly(opp, m.snapshot.PriceYes, result.Confidence,
		settings.KellyFraction, settings.MaxSingleBetFraction)

	_, err = s.store.InsertRecommendation(ctx, &types.Recommendation{
		MarketID:      market.ID,
		EstimateID:    estimate.ID,
		SnapshotID:    m.snapshot.ID,
		Direction:     opp.Direction,
		MarketPrice:   m.snapshot.PriceYes,
		AIProbability: result.Probability,
		Edge:          opp.Edge,
		EV:            opp.EV,
		KellyFraction: kelly,
		Status:        types.RecommendationActive,
	})
	if err != nil {
		return err
	}

	RecommendationsTotal.WithLabelValues(string(opp.Direction)).Inc()
	s.logger.Info("recommendation-replaced",
		zap.String("ticker", market.VenueID),
		zap.String("direction", string(opp.Direction)),
		zap.Float64("market-price", m.snapshot.PriceYes),
		zap.Float64("ev", opp.EV))

	return nil
}

// RunDailyDigest assembles and sends the daily performance digest.
func (s *Scanner) RunDailyDigest(ctx context.Context) error {
	if s.notify == nil {
		return nil
	}

	aggregate, err := s.store.PerformanceAggregate(ctx)
	if err != nil {
		return fmt.Errorf("performance aggregate: %w", err)
	}

	recs, err := s.store.ActiveRecommendations(ctx)
	if err != nil {
		return fmt.Errorf("active recommendations: %w", err)
	}

	exposure, err := s.store.OpenExposure(ctx)
	if err != nil {
		return fmt.Errorf("open exposure: %w", err)
	}

	cost, err := s.store.CostSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return fmt.Errorf("research cost: %w", err)
	}

	s.notify.SendDigest(ctx, &notifier.DigestReport{
		Aggregate:    aggregate,
		ActiveRecs:   len(recs),
		OpenExposure: exposure,
		CostToday:    cost,
	})

	return nil
}
