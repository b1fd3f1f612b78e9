// Package scheduler triggers the pipeline's recurring jobs: full scans
// at configured local hours, interval maintenance jobs, and the daily
// digest. Jobs never overlap themselves and a missed fire is not
// backfilled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mselser95/kalshi-edge/internal/scanner"
	"github.com/mselser95/kalshi-edge/pkg/config"
	"github.com/mselser95/kalshi-edge/pkg/types"
)

// Pipeline is the slice of the scanner the scheduler drives.
type Pipeline interface {
	RunFullScan(ctx context.Context, premium bool) (*scanner.Summary, error)
	RunResolutionCheck(ctx context.Context) error
	RunPriceRefresh(ctx context.Context) error
	RunDailyDigest(ctx context.Context) error
}

// TradeSyncer reconciles venue fills with local trades.
type TradeSyncer interface {
	Run(ctx context.Context) (*types.SyncResult, error)
}

// Notifier receives job failure alerts.
type Notifier interface {
	SendFailure(ctx context.Context, subject, detail string)
}

// SettingsResolver yields the effective runtime settings.
type SettingsResolver interface {
	Resolve(ctx context.Context) config.Settings
}

// Scheduler owns the cron instance and the per-job overlap locks.
type Scheduler struct {
	pipeline Pipeline
	syncer   TradeSyncer
	notify   Notifier
	settings SettingsResolver
	logger   *zap.Logger

	resolutionInterval time.Duration
	syncInterval       time.Duration
	refreshInterval    time.Duration
	digestHour         int

	cron *cron.Cron
	loc  *time.Location

	mu        sync.Mutex
	scanEntry cron.EntryID
	scanHours []int
	baseCtx   context.Context
	jobLocks  map[string]*sync.Mutex
}

// Config holds scheduler dependencies and intervals. A zero interval
// disables that job.
type Config struct {
	Pipeline Pipeline
	Syncer   TradeSyncer
	Notifier Notifier
	Settings SettingsResolver
	Logger   *zap.Logger

	Timezone                string
	ResolutionCheckInterval time.Duration
	TradeSyncInterval       time.Duration
	PriceRefreshInterval    time.Duration
	DigestHour              int
}

// New creates a scheduler.
func New(cfg *Config) (*Scheduler, error) {
	if cfg.Pipeline == nil || cfg.Settings == nil {
		return nil, fmt.Errorf("pipeline and settings are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.DigestHour < 0 || cfg.DigestHour > 23 {
		return nil, fmt.Errorf("digest hour out of range: %d", cfg.DigestHour)
	}

	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone: %w", err)
		}
	}

	return &Scheduler{
		pipeline:           cfg.Pipeline,
		syncer:             cfg.Syncer,
		notify:             cfg.Notifier,
		settings:           cfg.Settings,
		logger:             cfg.Logger,
		resolutionInterval: cfg.ResolutionCheckInterval,
		syncInterval:       cfg.TradeSyncInterval,
		refreshInterval:    cfg.PriceRefreshInterval,
		digestHour:         cfg.DigestHour,
		cron:               cron.New(cron.WithLocation(loc)),
		loc:                loc,
		jobLocks:           make(map[string]*sync.Mutex),
	}, nil
}

// Start registers all jobs and begins firing them. Scan hours come
// from the resolved runtime settings so database overrides survive a
// restart.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseCtx = ctx

	hours := sanitizeHours(s.settings.Resolve(ctx).ScanTimes)
	entry, err := s.cron.AddFunc(scanSpec(hours), func() {
		s.runJob("full-scan", func(ctx context.Context) error {
			_, err := s.pipeline.RunFullScan(ctx, false)
			if errors.Is(err, types.ErrScanInFlight) {
				s.logger.Info("job-skipped-scan-in-flight")
				return nil
			}
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("schedule full scan: %w", err)
	}
	s.scanEntry = entry
	s.scanHours = hours

	if s.resolutionInterval > 0 {
		s.cron.Schedule(cron.Every(s.resolutionInterval), s.jobFunc("resolution-check", s.pipeline.RunResolutionCheck))
	}
	if s.syncInterval > 0 && s.syncer != nil {
		s.cron.Schedule(cron.Every(s.syncInterval), s.jobFunc("trade-sync", func(ctx context.Context) error {
			_, err := s.syncer.Run(ctx)
			return err
		}))
	}
	if s.refreshInterval > 0 {
		s.cron.Schedule(cron.Every(s.refreshInterval), s.jobFunc("price-refresh", s.pipeline.RunPriceRefresh))
	}

	_, err = s.cron.AddFunc(fmt.Sprintf("0 %d * * *", s.digestHour), func() {
		s.runJob("daily-digest", s.pipeline.RunDailyDigest)
	})
	if err != nil {
		return fmt.Errorf("schedule daily digest: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler-started",
		zap.Ints("scan-hours", hours),
		zap.String("timezone", s.loc.String()),
		zap.Int("digest-hour", s.digestHour))

	return nil
}

// Stop halts the cron without waiting for in-flight jobs; they keep
// their own contexts and finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler-stopped")
}

// Reschedule atomically replaces the full-scan trigger with new hours.
// An empty or entirely invalid list keeps the current schedule.
func (s *Scheduler) Reschedule(scanTimes []int) error {
	hours := sanitizeHours(scanTimes)
	if len(hours) == 0 {
		s.logger.Warn("reschedule-ignored-no-valid-hours")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cron.Remove(s.scanEntry)
	entry, err := s.cron.AddFunc(scanSpec(hours), func() {
		s.runJob("full-scan", func(ctx context.Context) error {
			_, err := s.pipeline.RunFullScan(ctx, false)
			if errors.Is(err, types.ErrScanInFlight) {
				return nil
			}
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("reschedule full scan: %w", err)
	}
	s.scanEntry = entry
	s.scanHours = hours
	ReschedulesTotal.Inc()
	s.logger.Info("scan-schedule-updated", zap.Ints("scan-hours", hours))

	return nil
}

// NextScanTime returns the next full-scan fire time, zero when the
// scheduler is not running.
func (s *Scheduler) NextScanTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cron.Entry(s.scanEntry).Next
}

// ScanHours returns the currently scheduled scan hours.
func (s *Scheduler) ScanHours() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]int, len(s.scanHours))
	copy(out, s.scanHours)

	return out
}

func (s *Scheduler) jobFunc(name string, fn func(context.Context) error) cron.Job {
	return cron.FuncJob(func() { s.runJob(name, fn) })
}

// runJob executes one job run with overlap protection, panic recovery
// and failure alerting. A run that would overlap the previous one of
// the same job is skipped, not queued.
func (s *Scheduler) runJob(name string, fn func(context.Context) error) {
	lock := s.lockFor(name)
	if !lock.TryLock() {
		JobSkipsTotal.WithLabelValues(name).Inc()
		s.logger.Warn("job-skipped-still-running", zap.String("job", name))
		return
	}
	defer lock.Unlock()

	ctx := s.jobContext()
	started := time.Now()
	JobRunsTotal.WithLabelValues(name).Inc()
	s.logger.Info("job-started", zap.String("job", name))

	err := s.invoke(ctx, name, fn)
	JobDurationSeconds.WithLabelValues(name).Observe(time.Since(started).Seconds())
	if err != nil {
		JobFailuresTotal.WithLabelValues(name).Inc()
		s.logger.Error("job-failed", zap.String("job", name), zap.Error(err))
		if s.notify != nil {
			s.notify.SendFailure(ctx, "scheduled job "+name+" failed", err.Error())
		}
		return
	}

	s.logger.Info("job-completed",
		zap.String("job", name),
		zap.Duration("duration", time.Since(started)))
}

// invoke turns a job panic into an error so one bad run cannot take
// the scheduler down.
func (s *Scheduler) invoke(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
	}()

	return fn(ctx)
}

func (s *Scheduler) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.jobLocks[name]
	if !ok {
		lock = &sync.Mutex{}
		s.jobLocks[name] = lock
	}

	return lock
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseCtx != nil {
		return s.baseCtx
	}

	return context.Background()
}

// sanitizeHours keeps hours in [0, 23], sorted and deduplicated.
func sanitizeHours(hours []int) []int {
	seen := make(map[int]struct{}, len(hours))
	var valid []int
	for _, h := range hours {
		if h < 0 || h > 23 {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		valid = append(valid, h)
	}
	sort.Ints(valid)

	return valid
}

// scanSpec renders hours as a five-field cron spec firing on the hour.
func scanSpec(hours []int) string {
	if len(hours) == 0 {
		hours = []int{8}
	}

	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}

	return "0 " + strings.Join(parts, ",") + " * * *"
}
