package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	minTrackableUs = 1
	maxTrackableUs = int64(10 * time.Minute / time.Microsecond)
)

// SafeHistogram is a thread-safe wrapper around hdrhistogram
type SafeHistogram struct {
	hist *hdrhistogram.Histogram
	mu   sync.Mutex
}

func NewSafeHistogram() *SafeHistogram {
	// 1us to 10min, 3 significant figures
	h := hdrhistogram.New(minTrackableUs, maxTrackableUs, 3)
	return &SafeHistogram{hist: h}
}

// RecordDuration records d in microseconds, clamped to the trackable range.
func (h *SafeHistogram) RecordDuration(d time.Duration) {
	us := d.Microseconds()
	if us < minTrackableUs {
		us = minTrackableUs
	}
	if us > maxTrackableUs {
		us = maxTrackableUs
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	// In range by construction, so the error is always nil.
	_ = h.hist.RecordValue(us)
}

func (h *SafeHistogram) ValueAtQuantile(q float64) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.ValueAtQuantile(q)
}

func (h *SafeHistogram) Mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Mean()
}

func (h *SafeHistogram) Max() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Max()
}

func (h *SafeHistogram) TotalCount() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.TotalCount()
}

// QuantileMs returns the q-th percentile (0-100) in milliseconds.
func (h *SafeHistogram) QuantileMs(q float64) float64 {
	return float64(h.ValueAtQuantile(q)) / 1000.0
}
