package scanner

import (
	"context"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/calc"
	"github.com/mselser95/kalshi-edge/internal/notifier"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// finalizeAll persists fresh estimates, converts edges into
// recommendations, and optionally auto-trades them. Per-market failures
// are counted, not fatal.
func (s *Scanner) finalizeAll(ctx context.Context, candidates []*candidate, settings *config.Settings, summary *Summary) {
	for _, c := range candidates {
		if err := s.finalizeOne(ctx, c, settings, summary); err != nil {
			summary.Errors++
			s.progress.AddErrors(1)
			s.logger.Warn("market-finalize-failed",
				zap.String("ticker", c.market.VenueID), zap.Error(err))
		}
	}
}

func (s *Scanner) finalizeOne(ctx context.Context, c *candidate, settings *config.Settings, summary *Summary) error {
	estimate := c.cached
	if estimate == nil {
		inserted, err := s.store.InsertEstimate(ctx, &types.Estimate{
			MarketID:         c.market.ID,
			Probability:      c.result.Probability,
			Confidence:       c.result.Confidence,
			Reasoning:        c.result.Reasoning,
			KeyEvidence:      c.result.KeyEvidence,
			KeyUncertainties: c.result.KeyUncertainties,
			Model:            c.result.Model,
		})
		if err != nil {
			return err
		}
		estimate = inserted

		if err := s.store.InsertCost(ctx, &types.ResearchCost{
			MarketID:     c.market.ID,
			Model:        c.result.Model,
			Purpose:      "estimate",
			InputTokens:  c.result.InputTokens,
			OutputTokens: c.result.OutputTokens,
			CostUSD:      c.result.CostUSD,
		}); err != nil {
			s.logger.Warn("cost-log-failed", zap.Error(err))
		}
	}

	pAI := c.probability()
	conf := c.confidence()
	price := c.snapshot.PriceYes

	opp, ok := calc.Evaluate(pAI, price, settings.MinEdgeThreshold)
	if !ok {
		return nil
	}
	if !calc.ShouldRecommend(opp.EV, pAI, conf) {
		s.logger.Debug("edge-below-action-threshold",
			zap.String("ticker", c.market.VenueID),
			zap.Float64("ev", opp.EV),
			zap.String("confidence", string(conf)))
		return nil
	}

	kelly := calc.Kelly(opp, price, conf, settings.KellyFraction, settings.MaxSingleBetFraction)

	rec, err := s.store.InsertRecommendation(ctx, &types.Recommendation{
		MarketID:      c.market.ID,
		EstimateID:    estimate.ID,
		SnapshotID:    c.snapshot.ID,
		Direction:     opp.Direction,
		MarketPrice:   price,
		AIProbability: pAI,
		Edge:          opp.Edge,
		EV:            opp.EV,
		KellyFraction: kelly,
		Status:        types.RecommendationActive,
	})
	if err != nil {
		return err
	}

	summary.Recommended++
	s.progress.AddRecommended(1)
	RecommendationsTotal.WithLabelValues(string(opp.Direction)).Inc()
	s.logger.Info("recommendation-created",
		zap.String("ticker", c.market.VenueID),
		zap.String("direction", string(opp.Direction)),
		zap.Float64("market-price", price),
		zap.Float64("ai-probability", pAI),
		zap.Float64("ev", opp.EV),
		zap.Float64("kelly", kelly))

	if s.notify != nil && opp.EV >= settings.NotificationMinEV {
		s.notify.SendRecommendation(ctx, &notifier.RecommendationReport{
			Question:      c.market.Question,
			Direction:     opp.Direction,
			MarketPrice:   price,
			AIProbability: pAI,
			EV:            opp.EV,
			Confidence:    conf,
			Reasoning:     estimate.Reasoning,
		})
	}

	if s.autoTradeEligible(opp.EV, conf, settings) {
		if err := s.autoTrade(ctx, c, rec, opp, kelly, settings, summary); err != nil {
			s.logger.Warn("auto-trade-failed",
				zap.String("ticker", c.market.VenueID), zap.Error(err))
			summary.Errors++
		}
	}

	return nil
}

func (s *Scanner) autoTradeEligible(ev float64, conf types.Confidence, settings *config.Settings) bool {
	return settings.AutoTradeEnabled &&
		ev >= settings.AutoTradeMinEV &&
		conf != types.ConfidenceLow
}

// autoTrade sizes and places a venue order for a recommendation,
// respecting the portfolio exposure cap.
func (s *Scanner) autoTrade(ctx context.Context, c *candidate, rec *types.Recommendation, opp calc.Opportunity, kelly float64, settings *config.Settings, summary *Summary) error {
	bet := calc.BetSize(kelly, settings.Bankroll, settings.MaxBet)
	contracts := calc.Contracts(bet, rec.MarketPrice, opp.Direction)
	if contracts <= 0 {
		return nil
	}

	exposure, err := s.store.OpenExposure(ctx)
	if err != nil {
		return err
	}

	entry := rec.MarketPrice
	if opp.Direction == types.DirectionNo {
		entry = 1 - rec.MarketPrice
	}
	entryCents := calc.EntryCents(entry)
	cost := float64(contracts) * float64(entryCents) / 100

	if exposure+cost > settings.MaxExposureFraction*settings.Bankroll {
		s.logger.Info("auto-trade-skipped-exposure-cap",
			zap.String("ticker", c.market.VenueID),
			zap.Float64("open-exposure", exposure),
			zap.Float64("cost", cost))
		return nil
	}

	order, err := s.venue.PlaceOrder(ctx, c.market.VenueID, string(opp.Direction),
		contracts, calc.EntryCents(rec.MarketPrice))
	if err != nil {
		return err
	}

	recID := rec.ID
	_, err = s.store.InsertTrade(ctx, &types.Trade{
		MarketID:         c.market.ID,
		RecommendationID: &recID,
		VenueTradeID:     "order_" + order.OrderID,
		Direction:        opp.Direction,
		Price:            rec.MarketPrice,
		Contracts:        contracts,
		Amount:           cost,
		FeesPaid:         float64(contracts) * calc.Fee(float64(entryCents)/100),
		Status:           types.TradeOpen,
	})
	if err != nil {
		return err
	}

	summary.TradesPlaced++
	TradesPlacedTotal.Inc()
	s.logger.Info("auto-trade-placed",
		zap.String("ticker", c.market.VenueID),
		zap.String("order-id", order.OrderID),
		zap.String("direction", string(opp.Direction)),
		zap.Int("contracts", contracts),
		zap.Float64("cost", cost))

	return nil
}
