// Package scanner orchestrates the edge-detection pipeline: discover
// markets, snapshot prices, estimate blind probabilities, turn edges
// into recommendations, and settle resolved markets.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/circuitbreaker"
	"github.com/mselser95/kalshi-edge/internal/exchange"
	"github.com/mselser95/kalshi-edge/internal/notifier"
	"github.com/mselser95/kalshi-edge/internal/research"
	"github.com/mselser95/kalshi-edge/internal/storage"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

const (
	venueName = "kalshi"

	// minCloseLead keeps markets that settle within the next two hours
	// out of the pipeline: research would arrive after the fact.
	minCloseLead = 2 * time.Hour

	// failureStreakThreshold aborts a scan after this many consecutive
	// estimation failures.
	failureStreakThreshold = 5

	// estimateConcurrency bounds parallel synchronous estimation calls.
	estimateConcurrency = 5

	// prepareConcurrency bounds parallel market preparation.
	prepareConcurrency = 8
)

// Venue is the slice of the exchange client the scanner uses.
type Venue interface {
	FetchMarkets(ctx context.Context, opts exchange.FetchOptions) ([]types.VenueMarket, error)
	GetMarket(ctx context.Context, ticker string) (*types.VenueMarket, error)
	CheckResolutionsBatch(ctx context.Context, tickers []string) (map[string]types.ResolutionState, error)
	PlaceOrder(ctx context.Context, ticker, side string, count, yesPriceCents int) (*exchange.Order, error)
}

// Researcher produces blind probability estimates.
type Researcher interface {
	Screen(ctx context.Context, ticker string, input *types.BlindInput) bool
	Estimate(ctx context.Context, input *types.BlindInput, opts research.EstimateOptions) (*research.Result, error)
	EstimateBatch(ctx context.Context, items []research.BatchItem, opts research.BatchOptions) (map[string]*research.Result, error)
}

// Notifier is the slice of the notification client the scanner uses.
type Notifier interface {
	SendScanSummary(ctx context.Context, r *notifier.ScanReport)
	SendRecommendation(ctx context.Context, r *notifier.RecommendationReport)
	SendResolution(ctx context.Context, r *notifier.ResolutionReport)
	SendDigest(ctx context.Context, r *notifier.DigestReport)
	SendFailure(ctx context.Context, subject, detail string)
}

// SettingsResolver yields the effective runtime settings.
type SettingsResolver interface {
	Resolve(ctx context.Context) config.Settings
}

// Scanner runs the pipeline. Full scans are single-flight: a trigger
// while one is running returns ErrScanInFlight.
type Scanner struct {
	store    storage.Store
	venue    Venue
	research Researcher
	notify   Notifier
	settings SettingsResolver
	progress *Tracker
	breaker  *circuitbreaker.StreakBreaker
	logger   *zap.Logger

	scanMu sync.Mutex
}

// Config holds scanner dependencies.
type Config struct {
	Store    storage.Store
	Venue    Venue
	Research Researcher
	Notifier Notifier
	Settings SettingsResolver
	Logger   *zap.Logger
}

// New creates a scanner.
func New(cfg *Config) (*Scanner, error) {
	if cfg.Store == nil || cfg.Venue == nil || cfg.Research == nil || cfg.Settings == nil {
		return nil, fmt.Errorf("store, venue, research and settings are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		Threshold: failureStreakThreshold,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Scanner{
		store:    cfg.Store,
		venue:    cfg.Venue,
		research: cfg.Research,
		notify:   cfg.Notifier,
		settings: cfg.Settings,
		progress: NewTracker(),
		breaker:  breaker,
		logger:   cfg.Logger,
	}, nil
}

// Progress returns the scan progress tracker.
func (s *Scanner) Progress() *Tracker {
	return s.progress
}

// RunFullScan executes one complete scan. Premium forces the high-value
// model for every estimate.
func (s *Scanner) RunFullScan(ctx context.Context, premium bool) (*Summary, error) {
	if !s.scanMu.TryLock() {
		return nil, types.ErrScanInFlight
	}
	defer s.scanMu.Unlock()

	started := time.Now()
	scanID := uuid.NewString()
	if !s.progress.Begin(scanID, started) {
		return nil, types.ErrScanInFlight
	}

	s.breaker.Reset()
	settings := s.settings.Resolve(ctx)

	s.logger.Info("scan-started",
		zap.String("scan-id", scanID),
		zap.Bool("premium", premium),
		zap.Int("markets-per-scan", settings.MarketsPerScan))
	ScansTotal.Inc()

	summary, err := s.runScan(ctx, scanID, &settings, premium, started)
	if err != nil {
		s.progress.Fail(err.Error(), time.Now())
		ScanFailuresTotal.Inc()
		if s.notify != nil {
			s.notify.SendFailure(ctx, "scan aborted", err.Error())
		}
		return nil, err
	}

	summary.Duration = time.Since(started)
	s.progress.Complete(summary, time.Now())
	ScanDurationSeconds.Observe(summary.Duration.Seconds())

	s.logger.Info("scan-completed",
		zap.String("scan-id", scanID),
		zap.Int("markets-found", summary.MarketsFound),
		zap.Int("estimated", summary.Estimated),
		zap.Int("recommended", summary.Recommended),
		zap.Int("trades-placed", summary.TradesPlaced),
		zap.Int("errors", summary.Errors),
		zap.Float64("cost-usd", summary.CostUSD),
		zap.Duration("duration", summary.Duration))

	if s.notify != nil {
		s.notify.SendScanSummary(ctx, &notifier.ScanReport{
			ScanID:       summary.ScanID,
			MarketsFound: summary.MarketsFound,
			ScreenedOut:  summary.ScreenedOut,
			Estimated:    summary.Estimated,
			Recommended:  summary.Recommended,
			TradesPlaced: summary.TradesPlaced,
			Errors:       summary.Errors,
			CostUSD:      summary.CostUSD,
			Duration:     summary.Duration,
		})
	}

	return summary, nil
}

func (s *Scanner) runScan(ctx context.Context, scanID string, settings *config.Settings, premium bool, started time.Time) (*Summary, error) {
	summary := &Summary{ScanID: scanID, StartedAt: started}

	feedback := s.loadCalibrationFeedback(ctx)

	s.progress.SetPhase("discovering")
	markets, err := s.venue.FetchMarkets(ctx, exchange.FetchOptions{
		Limit:     settings.MarketsPerScan,
		MinVolume: settings.MinVolume,
		MinClose:  started.Add(minCloseLead),
		MaxClose:  started.Add(time.Duration(settings.MaxCloseHours) * time.Hour),
	})
	if err != nil {
		return nil, fmt.Errorf("discover markets: %w", err)
	}
	summary.MarketsFound = len(markets)
	s.progress.AddFound(len(markets))

	s.progress.SetPhase("preparing")
	prepared := s.prepare(ctx, markets, settings, feedback, summary)

	s.progress.SetPhase("estimating")
	estimated, err := s.estimateAll(ctx, prepared, settings, premium, summary)
	if err != nil {
		return nil, err
	}

	s.progress.SetPhase("finalizing")
	s.finalizeAll(ctx, estimated, settings, summary)

	s.progress.SetPhase("sweeping")
	s.sweep(ctx, settings, summary)

	s.progress.SetPhase("resolving")
	if err := s.RunResolutionCheck(ctx); err != nil {
		s.logger.Warn("scan-resolution-pass-failed", zap.Error(err))
		summary.Errors++
	}

	return summary, nil
}

func (s *Scanner) loadCalibrationFeedback(ctx context.Context) string {
	stats, err := s.store.CalibrationStats(ctx)
	if err != nil {
		s.logger.Warn("calibration-stats-unavailable", zap.Error(err))
		return ""
	}

	return calibrationFeedback(stats)
}
