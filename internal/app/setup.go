package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/exchange"
	"github.com/mselser95/kalshi-edge/internal/notifier"
	"github.com/mselser95/kalshi-edge/internal/research"
	"github.com/mselser95/kalshi-edge/internal/scanner"
	"github.com/mselser95/kalshi-edge/internal/scheduler"
	"github.com/mselser95/kalshi-edge/internal/settings"
	"github.com/mselser95/kalshi-edge/internal/storage"
	"github.com/mselser95/kalshi-edge/internal/syncer"
	"github.com/mselser95/kalshi-edge/pkg/cache"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/healthprobe"
	"github.com/mselser95/kalshi-edge/pkg/httpserver"
	"github.com/mselser95/kalshi-edge/pkg/httputil"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	store, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	venue, err := setupVenueClient(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup venue client: %w", err)
	}

	screenCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	researcher, err := setupResearcher(cfg, logger, screenCache)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup researcher: %w", err)
	}

	notify := setupNotifier(cfg, logger)
	resolver := settings.NewResolver(store, logger)

	pipeline, err := scanner.New(&scanner.Config{
		Store:    store,
		Venue:    venue,
		Research: researcher,
		Notifier: notify,
		Settings: resolver,
		Logger:   logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup scanner: %w", err)
	}

	tradeSyncer, err := syncer.New(&syncer.Config{
		Store:  store,
		Venue:  venue,
		Logger: logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup syncer: %w", err)
	}

	sched, err := scheduler.New(&scheduler.Config{
		Pipeline:                pipeline,
		Syncer:                  tradeSyncer,
		Notifier:                notify,
		Settings:                resolver,
		Logger:                  logger,
		Timezone:                cfg.Timezone,
		ResolutionCheckInterval: cfg.ResolutionCheckInterval,
		TradeSyncInterval:       cfg.TradeSyncInterval,
		PriceRefreshInterval:    cfg.PriceRefreshInterval,
		DigestHour:              cfg.DigestHour,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup scheduler: %w", err)
	}

	healthChecker := healthprobe.New(&healthprobe.Config{
		DB: store,
		LastScan: func() time.Time {
			snap := pipeline.Progress().Snapshot()
			if snap.LastSummary == nil {
				return time.Time{}
			}
			return snap.LastSummary.StartedAt
		},
		NextScan: sched.NextScanTime,
	})

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Pipeline:      pipeline,
		Settings:      resolver,
		Rescheduler:   sched,
		Notifier:      notify,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		store:         store,
		venue:         venue,
		researcher:    researcher,
		screenCache:   screenCache,
		notify:        notify,
		settings:      resolver,
		scanner:       pipeline,
		syncer:        tradeSyncer,
		scheduler:     sched,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (*storage.PostgresStore, error) {
	return storage.NewPostgresStore(&storage.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
}

func setupVenueClient(cfg *config.Config, logger *zap.Logger) (*exchange.Client, error) {
	return exchange.New(&exchange.Config{
		BaseURL:        cfg.VenueAPIURL,
		APIKeyID:       cfg.VenueAPIKeyID,
		PrivateKeyPath: cfg.VenuePrivateKeyPath,
		PrivateKeyPEM:  cfg.VenuePrivateKeyPEM,
		Email:          cfg.VenueEmail,
		Password:       cfg.VenuePassword,
		HTTPClient: httputil.New(&httputil.Config{
			Timeout: 30 * time.Second,
			Logger:  logger,
		}),
		Logger: logger,
	})
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000, // 10x expected max items (1000 tickers)
		MaxCost:     1000,  // Maximum 1000 items in cache
		BufferItems: 64,    // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupResearcher(cfg *config.Config, logger *zap.Logger, screenCache cache.Cache) (*research.Client, error) {
	return research.New(&research.Config{
		BaseURL:      cfg.AnthropicAPIURL,
		APIKey:       cfg.AnthropicAPIKey,
		Model:        cfg.EstimateModel,
		ScreenModel:  cfg.ScreenModel,
		PremiumModel: cfg.PremiumModel,
		HTTPClient: httputil.New(&httputil.Config{
			// Web-search research turns run for minutes, not seconds.
			Timeout: 10 * time.Minute,
			Logger:  logger,
		}),
		ScreenCache: screenCache,
		Logger:      logger,
	})
}

func setupNotifier(cfg *config.Config, logger *zap.Logger) *notifier.Client {
	return notifier.New(&notifier.Config{
		EmailAPIURL:     cfg.EmailAPIURL,
		EmailAPIKey:     cfg.EmailAPIKey,
		EmailFrom:       cfg.EmailFrom,
		EmailTo:         cfg.EmailTo,
		SlackWebhookURL: cfg.SlackWebhookURL,
		HTTPClient: httputil.New(&httputil.Config{
			Timeout: 15 * time.Second,
			Logger:  logger,
		}),
		Logger: logger,
	})
}
