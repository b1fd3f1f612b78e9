// Package app wires the service together: storage, venue client,
// researcher, pipeline, scheduler and the HTTP surface.
package app

import (
	"context"
	"sync"

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
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	store         *storage.PostgresStore
	venue         *exchange.Client
	researcher    *research.Client
	screenCache   cache.Cache
	notify        *notifier.Client
	settings      *settings.Resolver
	scanner       *scanner.Scanner
	syncer        *syncer.Syncer
	scheduler     *scheduler.Scheduler
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}
