// Package circuitbreaker guards long-running scans against burning
// money on a failing model API. A streak of consecutive estimation
// failures trips the breaker and aborts the scan.
package circuitbreaker

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// StreakBreaker trips after a configured number of consecutive
// failures. Any success resets the streak. Safe for concurrent use by
// the estimation workers.
type StreakBreaker struct {
	threshold int
	logger    *zap.Logger

	mu          sync.Mutex
	consecutive int
	tripped     bool
	failures    int
	successes   int
}

// Config holds breaker configuration.
type Config struct {
	// Threshold is the consecutive-failure count that trips the breaker.
	Threshold int
	Logger    *zap.Logger
}

// Status is a point-in-time view of the breaker for status surfaces.
type Status struct {
	Tripped             bool
	ConsecutiveFailures int
	TotalFailures       int
	TotalSuccesses      int
}

// New creates a streak breaker.
func New(cfg *Config) (*StreakBreaker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ConsecutiveFailures.Set(0)

	return &StreakBreaker{
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
	}, nil
}

// RecordSuccess resets the failure streak.
func (b *StreakBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes++
	b.consecutive = 0
	ConsecutiveFailures.Set(0)
}

// RecordFailure counts a failure and returns true when the streak
// reaches the threshold. Once tripped, the breaker stays tripped until
// Reset.
func (b *StreakBreaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.consecutive++
	ConsecutiveFailures.Set(float64(b.consecutive))

	if !b.tripped && b.consecutive >= b.threshold {
		b.tripped = true
		TripsTotal.Inc()
		b.logger.Error("breaker-tripped",
			zap.Int("consecutive-failures", b.consecutive),
			zap.Int("threshold", b.threshold))
	}

	return b.tripped
}

// Tripped reports whether the breaker is open.
func (b *StreakBreaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.tripped
}

// Reset clears the breaker for a fresh scan.
func (b *StreakBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tripped = false
	b.consecutive = 0
	b.failures = 0
	b.successes = 0
	ConsecutiveFailures.Set(0)
}

// Status returns a snapshot of the breaker state.
func (b *StreakBreaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Status{
		Tripped:             b.tripped,
		ConsecutiveFailures: b.consecutive,
		TotalFailures:       b.failures,
		TotalSuccesses:      b.successes,
	}
}
