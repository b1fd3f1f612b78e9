package scanner

import (
	"sync"
	"time"
)

// staleScanCutoff is how long a scan may claim to be running before a
// new trigger is allowed to declare it dead and take over.
const staleScanCutoff = 120 * time.Minute

// Status is the lifecycle state of the most recent scan.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Summary is the outcome of one full scan.
type Summary struct {
	ScanID       string        `json:"scan_id"`
	MarketsFound int           `json:"markets_found"`
	ScreenedOut  int           `json:"screened_out"`
	CacheHits    int           `json:"cache_hits"`
	Estimated    int           `json:"estimated"`
	Recommended  int           `json:"recommended"`
	TradesPlaced int           `json:"trades_placed"`
	Errors       int           `json:"errors"`
	CostUSD      float64       `json:"cost_usd"`
	Duration     time.Duration `json:"duration"`
	StartedAt    time.Time     `json:"started_at"`
}

// ProgressSnapshot is a copy of the tracker state for status endpoints.
type ProgressSnapshot struct {
	Status       Status    `json:"status"`
	Phase        string    `json:"phase"`
	ScanID       string    `json:"scan_id"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	MarketsFound int       `json:"markets_found"`
	ScreenedOut  int       `json:"screened_out"`
	Estimated    int       `json:"estimated"`
	Recommended  int       `json:"recommended"`
	Errors       int       `json:"errors"`
	LastError    string    `json:"last_error,omitempty"`
	LastSummary  *Summary  `json:"last_summary,omitempty"`
}

// Tracker is mutex-guarded in-memory scan progress. Reads get copies,
// never interior pointers.
type Tracker struct {
	mu    sync.Mutex
	state ProgressSnapshot
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{state: ProgressSnapshot{Status: StatusIdle}}
}

// Begin transitions the tracker to running for a new scan. A scan that
// has claimed to be running for longer than the stale cutoff is
// presumed dead and reset. Returns false when a live scan exists.
func (t *Tracker) Begin(scanID string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.Status == StatusRunning {
		if now.Sub(t.state.StartedAt) < staleScanCutoff {
			return false
		}
		// Stale: whatever was running never finished.
		t.state.Status = StatusFailed
		t.state.LastError = "scan abandoned after exceeding stale cutoff"
	}

	last := t.state.LastSummary
	t.state = ProgressSnapshot{
		Status:      StatusRunning,
		Phase:       "discovering",
		ScanID:      scanID,
		StartedAt:   now,
		LastSummary: last,
	}

	return true
}

// SetPhase updates the current pipeline phase.
func (t *Tracker) SetPhase(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Phase = phase
}

// AddFound records discovered markets.
func (t *Tracker) AddFound(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.MarketsFound += n
}

// AddScreenedOut records markets rejected by the pre-screen.
func (t *Tracker) AddScreenedOut(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.ScreenedOut += n
}

// AddEstimated records completed estimates.
func (t *Tracker) AddEstimated(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Estimated += n
}

// AddRecommended records inserted recommendations.
func (t *Tracker) AddRecommended(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Recommended += n
}

// AddErrors records per-market failures.
func (t *Tracker) AddErrors(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Errors += n
}

// Complete marks the scan finished and stores its summary.
func (t *Tracker) Complete(summary *Summary, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Status = StatusCompleted
	t.state.Phase = "done"
	t.state.CompletedAt = now

	s := *summary
	t.state.LastSummary = &s
}

// Fail marks the scan failed.
func (t *Tracker) Fail(reason string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Status = StatusFailed
	t.state.CompletedAt = now
	t.state.LastError = reason
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.state
	if t.state.LastSummary != nil {
		s := *t.state.LastSummary
		snap.LastSummary = &s
	}

	return snap
}
