// Package settings merges database config overrides over compiled
// defaults so runtime tuning survives restarts without redeploys.
package settings

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/pkg/config"
)

// Store is the slice of the persistence layer the resolver needs.
type Store interface {
	AllConfig(ctx context.Context) (map[string]string, error)
	SetConfig(ctx context.Context, key, value string) error
}

// Resolver produces the effective runtime settings.
type Resolver struct {
	store  Store
	logger *zap.Logger
}

// NewResolver creates a settings resolver.
func NewResolver(store Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{store: store, logger: logger}
}

// Resolve overlays stored overrides on the defaults. A bad stored value
// is logged and skipped so one corrupt row cannot take the pipeline
// down; a store failure falls back to pure defaults.
func (r *Resolver) Resolve(ctx context.Context) config.Settings {
	settings := config.DefaultSettings()

	overrides, err := r.store.AllConfig(ctx)
	if err != nil {
		r.logger.Warn("settings-load-failed", zap.Error(err))
		return settings
	}

	for key, value := range overrides {
		if err := settings.ApplyOverride(key, value); err != nil {
			r.logger.Warn("settings-override-skipped",
				zap.String("key", key),
				zap.String("value", value),
				zap.Error(err))
		}
	}

	return settings
}

// Save validates and persists a set of overrides. All-or-nothing on
// validation: no row is written if any key or value is invalid.
func (r *Resolver) Save(ctx context.Context, updates map[string]string) error {
	probe := config.DefaultSettings()
	for key, value := range updates {
		if err := probe.ApplyOverride(key, value); err != nil {
			return fmt.Errorf("invalid setting %s: %w", key, err)
		}
	}

	for key, value := range updates {
		if err := r.store.SetConfig(ctx, key, value); err != nil {
			return fmt.Errorf("persist setting %s: %w", key, err)
		}
		r.logger.Info("settings-updated",
			zap.String("key", key), zap.String("value", value))
	}

	return nil
}
