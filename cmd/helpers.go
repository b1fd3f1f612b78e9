package cmd

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/exchange"
	"github.com/mselser95/kalshi-edge/internal/notifier"
	"github.com/mselser95/kalshi-edge/internal/research"
	"github.com/mselser95/kalshi-edge/internal/scanner"
	"github.com/mselser95/kalshi-edge/internal/settings"
	"github.com/mselser95/kalshi-edge/internal/storage"
	"github.com/mselser95/kalshi-edge/pkg/cache"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/httputil"
)

// Shared construction for the one-shot operational commands. The run
// command wires everything through internal/app instead; these build
// only the components each command needs.

func loadConfig() (*config.Config, error) {
	// Load .env
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found\n")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

func newVenueClient(cfg *config.Config, logger *zap.Logger) (*exchange.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

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

func newStore(cfg *config.Config, logger *zap.Logger) (*storage.PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

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

// newPipeline builds the full scan pipeline for one-shot commands.
// The returned cleanup closes the store and the screen cache.
func newPipeline(cfg *config.Config, logger *zap.Logger) (*scanner.Scanner, func(), error) {
	store, err := newStore(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("setup storage: %w", err)
	}

	venue, err := newVenueClient(cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("setup venue client: %w", err)
	}

	screenCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("setup cache: %w", err)
	}

	researcher, err := research.New(&research.Config{
		BaseURL:      cfg.AnthropicAPIURL,
		APIKey:       cfg.AnthropicAPIKey,
		Model:        cfg.EstimateModel,
		ScreenModel:  cfg.ScreenModel,
		PremiumModel: cfg.PremiumModel,
		HTTPClient: httputil.New(&httputil.Config{
			Timeout: 10 * time.Minute,
			Logger:  logger,
		}),
		ScreenCache: screenCache,
		Logger:      logger,
	})
	if err != nil {
		screenCache.Close()
		_ = store.Close()
		return nil, nil, fmt.Errorf("setup researcher: %w", err)
	}

	notify := notifier.New(&notifier.Config{
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

	pipeline, err := scanner.New(&scanner.Config{
		Store:    store,
		Venue:    venue,
		Research: researcher,
		Notifier: notify,
		Settings: settings.NewResolver(store, logger),
		Logger:   logger,
	})
	if err != nil {
		screenCache.Close()
		_ = store.Close()
		return nil, nil, fmt.Errorf("setup scanner: %w", err)
	}

	cleanup := func() {
		screenCache.Close()
		_ = store.Close()
	}

	return pipeline, cleanup, nil
}
