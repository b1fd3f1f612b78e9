package scanner

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/mselser95/kalshi-edge/internal/research"
	"github.com/mselser95/kalshi-edge/pkg/config"
)

// estimateAll fills in a probability for every prepared candidate:
// cached estimates pass through, the rest go to the model in batch or
// synchronously. Returns only candidates that ended up with an
// estimate.
func (s *Scanner) estimateAll(ctx context.Context, prepared []*candidate, settings *config.Settings, premium bool, summary *Summary) ([]*candidate, error) {
	var pending []*candidate
	var done []*candidate

	for _, c := range prepared {
		if c.cached != nil {
			summary.CacheHits++
			done = append(done, c)
			continue
		}
		pending = append(pending, c)
	}

	if len(pending) == 0 {
		return done, nil
	}

	if settings.BatchResearchEnabled {
		pending = s.estimateBatch(ctx, pending, settings, premium, summary, &done)
	}

	synced, err := s.estimateSync(ctx, pending, settings, premium, summary)
	if err != nil {
		return nil, err
	}

	return append(done, synced...), nil
}

// estimateBatch tries the discounted batch path. Items the batch did
// not return fall through to the synchronous path.
func (s *Scanner) estimateBatch(ctx context.Context, pending []*candidate, settings *config.Settings, premium bool, summary *Summary, done *[]*candidate) []*candidate {
	items := make([]research.BatchItem, 0, len(pending))
	volumes := make(map[string]float64, len(pending))
	byID := make(map[string]*candidate, len(pending))

	for _, c := range pending {
		items = append(items, research.BatchItem{CustomID: c.market.ID, Input: c.input})
		volumes[c.market.ID] = c.volume
		byID[c.market.ID] = c
	}

	results, err := s.research.EstimateBatch(ctx, items, research.BatchOptions{
		Premium:                  premium,
		WebSearchMaxUses:         settings.WebSearchMaxUses,
		HighValueVolumeThreshold: settings.HighValueVolumeThreshold,
		VolumeMap:                volumes,
	})
	if err != nil {
		s.logger.Warn("batch-estimation-failed-falling-back", zap.Error(err))
		return pending
	}

	var leftover []*candidate
	for _, c := range pending {
		if result, ok := results[c.market.ID]; ok {
			c.result = result
			summary.Estimated++
			summary.CostUSD += result.CostUSD
			s.progress.AddEstimated(1)
			*done = append(*done, c)
			continue
		}
		leftover = append(leftover, c)
	}

	if len(leftover) > 0 {
		s.logger.Info("batch-estimation-partial",
			zap.Int("batched", len(pending)-len(leftover)),
			zap.Int("falling-back", len(leftover)))
	}

	return leftover
}

// estimateSync estimates candidates concurrently under a weighted
// semaphore. A streak of consecutive failures trips the breaker and
// aborts the scan.
func (s *Scanner) estimateSync(ctx context.Context, pending []*candidate, settings *config.Settings, premium bool, summary *Summary) ([]*candidate, error) {
	if len(pending) == 0 {
		return nil, nil
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		done []*candidate
	)
	sem := semaphore.NewWeighted(estimateConcurrency)

	for _, c := range pending {
		if s.breaker.Tripped() {
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}

		wg.Add(1)
		go func(c *candidate) {
			defer wg.Done()
			defer sem.Release(1)

			if s.breaker.Tripped() {
				return
			}

			result, err := s.research.Estimate(ctx, c.input, research.EstimateOptions{
				Volume:                   c.volume,
				HighValueVolumeThreshold: settings.HighValueVolumeThreshold,
				Premium:                  premium,
				WebSearchMaxUses:         settings.WebSearchMaxUses,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Errors++
				s.progress.AddErrors(1)
				s.breaker.RecordFailure()
				s.logger.Warn("market-estimate-failed",
					zap.String("ticker", c.market.VenueID), zap.Error(err))
				return
			}

			s.breaker.RecordSuccess()
			c.result = result
			summary.Estimated++
			summary.CostUSD += result.CostUSD
			s.progress.AddEstimated(1)
			done = append(done, c)
		}(c)
	}
	wg.Wait()

	if s.breaker.Tripped() {
		status := s.breaker.Status()
		return nil, fmt.Errorf("estimation aborted after %d consecutive failures",
			status.ConsecutiveFailures)
	}

	return done, nil
}
