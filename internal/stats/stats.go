package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats aggregates request outcomes. Counters are atomic and the histogram is
// locked, so Add and Snapshot may be called from any goroutine.
type Stats struct {
	Requests uint64
	Success  uint64
	Fail     uint64

	// Latency of completed calls (microseconds). Transport failures have no
	// latency and are left out.
	Latency *SafeHistogram

	mu     sync.Mutex
	errors map[string]uint64
}

// Snapshot is a point-in-time copy that is cheap to hand to a UI.
type Snapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64

	// SuccessRate is a fraction in [0, 1].
	SuccessRate float64

	MeanMs float64
	P50Ms  float64
	P90Ms  float64
	P99Ms  float64
	MaxMs  float64

	ErrorCounts map[string]uint64
}

func NewStats() *Stats {
	return &Stats{
		Latency: NewSafeHistogram(),
		errors:  make(map[string]uint64),
	}
}

// Add records one request. kind is empty for a success; completed says
// whether latency was observed.
func (s *Stats) Add(success bool, kind string, latency time.Duration, completed bool) {
	atomic.AddUint64(&s.Requests, 1)
	if success {
		atomic.AddUint64(&s.Success, 1)
	} else {
		atomic.AddUint64(&s.Fail, 1)
	}
	if kind != "" {
		s.mu.Lock()
		s.errors[kind]++
		s.mu.Unlock()
	}
	if completed {
		s.Latency.RecordDuration(latency)
	}
}

// SuccessRate is successes over requests, 0 before the first request.
func (s *Stats) SuccessRate() float64 {
	reqs := atomic.LoadUint64(&s.Requests)
	if reqs == 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&s.Success)) / float64(reqs)
}

func (s *Stats) GetErrorCounts() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.errors))
	for k, v := range s.errors {
		out[k] = v
	}
	return out
}

func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		Requests:    atomic.LoadUint64(&s.Requests),
		Success:     atomic.LoadUint64(&s.Success),
		Fail:        atomic.LoadUint64(&s.Fail),
		ErrorCounts: s.GetErrorCounts(),
	}
	if snap.Requests > 0 {
		snap.SuccessRate = float64(snap.Success) / float64(snap.Requests)
	}
	if s.Latency.TotalCount() > 0 {
		snap.MeanMs = s.Latency.Mean() / 1000.0
		snap.P50Ms = s.Latency.QuantileMs(50)
		snap.P90Ms = s.Latency.QuantileMs(90)
		snap.P99Ms = s.Latency.QuantileMs(99)
		snap.MaxMs = float64(s.Latency.Max()) / 1000.0
	}
	return snap
}
