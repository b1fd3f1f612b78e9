package scanner

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/research"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// candidate carries one market through the pipeline phases.
type candidate struct {
	market   *types.Market
	snapshot *types.Snapshot
	input    *types.BlindInput
	volume   float64

	// exactly one of these is set after the estimation phase
	cached *types.Estimate
	result *research.Result
}

func (c *candidate) probability() float64 {
	if c.cached != nil {
		return c.cached.Probability
	}
	return c.result.Probability
}

func (c *candidate) confidence() types.Confidence {
	if c.cached != nil {
		return c.cached.Confidence
	}
	return c.result.Confidence
}

// prepare upserts each discovered market, snapshots its price, and
// decides whether a fresh estimate is needed. Individual market
// failures are counted, not fatal.
func (s *Scanner) prepare(ctx context.Context, markets []types.VenueMarket, settings *config.Settings, feedback string, summary *Summary) []*candidate {
	var (
		mu        sync.Mutex
		out       []*candidate
		now       = time.Now()
		maxClose  = now.Add(time.Duration(settings.MaxCloseHours) * time.Hour)
		cacheAge  = time.Duration(settings.EstimateCacheHours) * time.Hour
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prepareConcurrency)

	for i := range markets {
		vm := markets[i]
		g.Go(func() error {
			c, screened, err := s.prepareOne(gctx, &vm, now, maxClose, cacheAge, settings.ReEstimateTrigger, feedback)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Errors++
				s.progress.AddErrors(1)
				s.logger.Warn("market-prepare-failed",
					zap.String("ticker", vm.Ticker), zap.Error(err))
			case screened:
				summary.ScreenedOut++
				s.progress.AddScreenedOut(1)
			case c != nil:
				out = append(out, c)
			}

			return nil
		})
	}
	_ = g.Wait()

	return out
}

// prepareOne returns (candidate, screenedOut, err). A nil candidate
// with no error means the market fell outside the close window.
func (s *Scanner) prepareOne(ctx context.Context, vm *types.VenueMarket, now, maxClose time.Time, cacheAge time.Duration, reEstimateTrigger float64, feedback string) (*candidate, bool, error) {
	if vm.CloseTime.Before(now.Add(minCloseLead)) || vm.CloseTime.After(maxClose) {
		return nil, false, nil
	}

	market, err := s.store.UpsertMarket(ctx, &types.Market{
		Venue:              venueName,
		VenueID:            vm.Ticker,
		Question:           vm.Question,
		Description:        vm.Description,
		ResolutionCriteria: vm.ResolutionCriteria,
		Category:           vm.Category,
		EventTicker:        vm.EventTicker,
		CloseTime:          vm.CloseTime,
		Status:             types.MarketActive,
	})
	if err != nil {
		return nil, false, err
	}

	snapshot, err := s.store.InsertSnapshot(ctx, &types.Snapshot{
		MarketID:  market.ID,
		PriceYes:  vm.PriceYes,
		PriceNo:   1 - vm.PriceYes,
		Volume:    vm.Volume,
		Liquidity: vm.Liquidity,
	})
	if err != nil {
		return nil, false, err
	}

	input := &types.BlindInput{
		Question:            vm.Question,
		ResolutionCriteria:  vm.ResolutionCriteria,
		CloseDate:           vm.CloseTime.UTC().Format("2006-01-02"),
		Category:            vm.Category,
		SportType:           vm.SportType,
		CalibrationFeedback: feedback,
	}

	c := &candidate{
		market:   market,
		snapshot: snapshot,
		input:    input,
		volume:   vm.Volume,
	}

	// A recent estimate is reusable while the price has not moved
	// enough to change the calculus since it was made.
	if est, err := s.store.RecentEstimate(ctx, market.ID, cacheAge); err == nil {
		if prior, err := s.store.SnapshotBefore(ctx, market.ID, est.CreatedAt); err == nil {
			moved := vm.PriceYes - prior.PriceYes
			if moved < 0 {
				moved = -moved
			}
			if moved < reEstimateTrigger {
				c.cached = est
				EstimateCacheHitsTotal.Inc()
				return c, false, nil
			}
		}
	}

	if !s.research.Screen(ctx, vm.Ticker, input) {
		s.logger.Debug("market-screened-out", zap.String("ticker", vm.Ticker))
		return nil, true, nil
	}

	return c, false, nil
}
