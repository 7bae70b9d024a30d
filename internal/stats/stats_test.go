package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsCountsAndErrors(t *testing.T) {
	s := NewStats()
	s.Add(true, "", 10*time.Millisecond, true)
	s.Add(false, "incorrect_result", 20*time.Millisecond, true)
	s.Add(false, "transport", 0, false)

	snap := s.Snapshot()
	assert.Equal(t, uint64(3), snap.Requests)
	assert.Equal(t, uint64(1), snap.Success)
	assert.Equal(t, uint64(2), snap.Fail)
	assert.Equal(t, map[string]uint64{"incorrect_result": 1, "transport": 1}, snap.ErrorCounts)
	assert.InDelta(t, 1.0/3, s.SuccessRate(), 1e-9)
	assert.InDelta(t, 1.0/3, snap.SuccessRate, 1e-9)
}

func TestSnapshotLatencyExcludesIncomplete(t *testing.T) {
	s := NewStats()
	s.Add(true, "", 10*time.Millisecond, true)
	s.Add(true, "", 30*time.Millisecond, true)
	s.Add(false, "transport", 5*time.Second, false)

	snap := s.Snapshot()
	assert.Equal(t, int64(2), s.Latency.TotalCount())
	assert.InDelta(t, 20, snap.MeanMs, 0.1)
	assert.InDelta(t, 30, snap.MaxMs, 0.1)
	assert.InDelta(t, 10, snap.P50Ms, 0.1)
}

func TestEmptyStats(t *testing.T) {
	s := NewStats()
	snap := s.Snapshot()
	assert.Zero(t, s.SuccessRate())
	assert.Zero(t, snap.SuccessRate)
	assert.Zero(t, snap.MeanMs)
	assert.Empty(t, snap.ErrorCounts)
}

func TestStatsConcurrentAdd(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Add(j%2 == 0, "", time.Millisecond, true)
			}
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, uint64(1000), snap.Requests)
	assert.Equal(t, uint64(500), snap.Success)
	assert.Equal(t, int64(1000), s.Latency.TotalCount())
}

func TestHistogramClampsOutOfRange(t *testing.T) {
	h := NewSafeHistogram()
	h.RecordDuration(0)
	h.RecordDuration(time.Hour)
	assert.Equal(t, int64(2), h.TotalCount())
}
