package scanner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, StatusIdle, tr.Snapshot().Status)

	now := time.Now()
	require.True(t, tr.Begin("scan-1", now))

	tr.SetPhase("estimating")
	tr.AddFound(40)
	tr.AddScreenedOut(5)
	tr.AddEstimated(30)
	tr.AddRecommended(3)
	tr.AddErrors(2)

	snap := tr.Snapshot()
	assert.Equal(t, StatusRunning, snap.Status)
	assert.Equal(t, "estimating", snap.Phase)
	assert.Equal(t, 40, snap.MarketsFound)
	assert.Equal(t, 5, snap.ScreenedOut)
	assert.Equal(t, 30, snap.Estimated)
	assert.Equal(t, 3, snap.Recommended)
	assert.Equal(t, 2, snap.Errors)

	tr.Complete(&Summary{ScanID: "scan-1", Recommended: 3}, now.Add(time.Minute))

	snap = tr.Snapshot()
	assert.Equal(t, StatusCompleted, snap.Status)
	require.NotNil(t, snap.LastSummary)
	assert.Equal(t, "scan-1", snap.LastSummary.ScanID)
}

func TestTracker_RejectsConcurrentScan(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	require.True(t, tr.Begin("scan-1", now))
	assert.False(t, tr.Begin("scan-2", now.Add(time.Minute)))
}

func TestTracker_StaleScanReset(t *testing.T) {
	tr := NewTracker()
	started := time.Now().Add(-3 * time.Hour)

	require.True(t, tr.Begin("dead-scan", started))
	// Three hours later the dead scan no longer blocks a new one.
	assert.True(t, tr.Begin("scan-2", time.Now()))
	assert.Equal(t, "scan-2", tr.Snapshot().ScanID)
}

func TestTracker_FailKeepsLastSummary(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	require.True(t, tr.Begin("scan-1", now))
	tr.Complete(&Summary{ScanID: "scan-1"}, now)

	require.True(t, tr.Begin("scan-2", now.Add(time.Hour)))
	tr.Fail("model api down", now.Add(2*time.Hour))

	snap := tr.Snapshot()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "model api down", snap.LastError)
	require.NotNil(t, snap.LastSummary, "a failed scan keeps the previous summary")
	assert.Equal(t, "scan-1", snap.LastSummary.ScanID)
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tr := NewTracker()
	require.True(t, tr.Begin("scan-1", time.Now()))
	tr.Complete(&Summary{ScanID: "scan-1", Recommended: 1}, time.Now())

	snap := tr.Snapshot()
	snap.LastSummary.Recommended = 99

	assert.Equal(t, 1, tr.Snapshot().LastSummary.Recommended)
}
