package runner

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// fakeCaller answers with sqrt(input) after a fixed latency, unless a hook
// says otherwise.
type fakeCaller struct {
	latencyMs float64
	respond   func(input int64) (RawResponse, error)

	calls    int64
	inflight int64
	peak     int64

	mu     sync.Mutex
	inputs []int64

	// hold, if set, blocks every call until it is closed.
	hold chan struct{}
}

func (f *fakeCaller) Call(ctx context.Context, input int64, timeout time.Duration) (RawResponse, error) {
	atomic.AddInt64(&f.calls, 1)
	cur := atomic.AddInt64(&f.inflight, 1)
	defer atomic.AddInt64(&f.inflight, -1)
	for {
		p := atomic.LoadInt64(&f.peak)
		if cur <= p || atomic.CompareAndSwapInt64(&f.peak, p, cur) {
			break
		}
	}

	f.mu.Lock()
	f.inputs = append(f.inputs, input)
	f.mu.Unlock()

	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return RawResponse{}, &TransportError{Cause: "canceled", Err: ctx.Err()}
		}
	}

	if f.respond != nil {
		return f.respond(input)
	}
	v := math.Sqrt(float64(input))
	return RawResponse{Result: &v, LatencyMs: f.latencyMs}, nil
}

func (f *fakeCaller) seen() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.inputs...)
}

func floatPtr(v float64) *float64 {
	return &v
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Timeout = time.Second
	return cfg
}
