package circuitbreaker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestBreaker(t *testing.T, threshold int) *StreakBreaker {
	t.Helper()

	b, err := New(&Config{Threshold: threshold, Logger: zap.NewNop()})
	require.NoError(t, err)

	return b
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{Threshold: 0})
	assert.Error(t, err)
}

func TestBreaker_TripsAtThreshold(t *testing.T) {
	b := newTestBreaker(t, 3)

	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure())
	assert.True(t, b.Tripped())
}

func TestBreaker_SuccessResetsStreak(t *testing.T) {
	b := newTestBreaker(t, 3)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	assert.False(t, b.RecordFailure(), "streak must restart after a success")
	assert.False(t, b.Tripped())

	status := b.Status()
	assert.Equal(t, 3, status.TotalFailures)
	assert.Equal(t, 1, status.TotalSuccesses)
	assert.Equal(t, 1, status.ConsecutiveFailures)
}

func TestBreaker_StaysTrippedUntilReset(t *testing.T) {
	b := newTestBreaker(t, 1)

	assert.True(t, b.RecordFailure())
	b.RecordSuccess()
	assert.True(t, b.Tripped(), "a success does not close a tripped breaker")

	b.Reset()
	assert.False(t, b.Tripped())
	assert.Equal(t, Status{}, b.Status())
}

func TestBreaker_Concurrent(t *testing.T) {
	b := newTestBreaker(t, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.RecordFailure()
			}
		}()
	}
	wg.Wait()

	assert.True(t, b.Tripped())
	assert.Equal(t, 1000, b.Status().TotalFailures)
}
