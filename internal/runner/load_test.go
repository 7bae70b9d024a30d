package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRunAllSucceed(t *testing.T) {
	fc := &fakeCaller{latencyMs: 150}
	r, err := NewLoadRunner(testConfig(), fc, nil)
	require.NoError(t, err)

	var emitted []int
	r.OnBurst = func(done, total int, res BurstResult) {
		assert.Equal(t, 2, total)
		emitted = append(emitted, res.Concurrency)
	}

	results, err := r.Run(context.Background(), []int{10, 100}, 1, 10000)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 10, results[0].Concurrency)
	assert.Equal(t, 1.0, results[0].SuccessRate)
	assert.Equal(t, 150.0, results[0].AvgLatencyMs)
	assert.Equal(t, 100, results[1].Concurrency)
	assert.Equal(t, 1.0, results[1].SuccessRate)
	assert.Equal(t, 150.0, results[1].AvgLatencyMs)
	assert.Nil(t, results[1].ErrorCounts)
	assert.Equal(t, []int{10, 100}, emitted)
	assert.EqualValues(t, 110, fc.calls)
}

func TestLoadRunBurstIsConcurrent(t *testing.T) {
	fc := &fakeCaller{latencyMs: 150, hold: make(chan struct{})}
	r, err := NewLoadRunner(testConfig(), fc, nil)
	require.NoError(t, err)

	// The burst can only finish once all 20 requests are in flight together.
	go func() {
		for atomic.LoadInt64(&fc.inflight) < 20 {
			time.Sleep(time.Millisecond)
		}
		close(fc.hold)
	}()

	results, err := r.Run(context.Background(), []int{20}, 1, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 20, fc.peak)
	assert.Equal(t, 1.0, results[0].SuccessRate)
}

func TestLoadRunFailuresOnlyLowerSuccessRate(t *testing.T) {
	var n int64
	fc := &fakeCaller{respond: func(input int64) (RawResponse, error) {
		if atomic.AddInt64(&n, 1)%2 == 0 {
			return RawResponse{}, &TransportError{Cause: "timeout"}
		}
		return RawResponse{Result: floatPtr(sqrtOrZero(input)), LatencyMs: 120}, nil
	}}
	r, err := NewLoadRunner(testConfig(), fc, nil)
	require.NoError(t, err)

	var mu sync.Mutex
	perRequest := 0
	successes := 0
	r.OnRequest = func(concurrency int, rec OutcomeRecord) {
		mu.Lock()
		defer mu.Unlock()
		perRequest++
		if rec.Success {
			successes++
		}
	}

	results, err := r.Run(context.Background(), []int{10, 4}, 1, 100)
	require.NoError(t, err)
	require.Len(t, results, 2)

	first := results[0]
	assert.Equal(t, 5, first.Successes)
	assert.Equal(t, 0.5, first.SuccessRate)
	// failed requests contribute 0 ms
	assert.Equal(t, 60.0, first.AvgLatencyMs)
	assert.Equal(t, map[ErrorKind]int{ErrorTransport: 5}, first.ErrorCounts)
	assert.Equal(t, 0.5, results[1].SuccessRate)

	assert.Equal(t, 14, perRequest)
	assert.Equal(t, 7, successes)
}

func TestLoadRunTimeoutDoesNotBlockBurst(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	var n int64
	fc := &fakeCaller{respond: func(input int64) (RawResponse, error) {
		if atomic.AddInt64(&n, 1) == 1 {
			return RawResponse{}, &TransportError{Cause: "timeout"}
		}
		return RawResponse{Result: floatPtr(sqrtOrZero(input)), LatencyMs: 150}, nil
	}}
	r, err := NewLoadRunner(cfg, fc, nil)
	require.NoError(t, err)

	results, err := r.Run(context.Background(), []int{5}, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 0.8, results[0].SuccessRate)
	assert.Equal(t, 120.0, results[0].AvgLatencyMs)
}

func TestLoadRunStalledRequestTimesOutAlone(t *testing.T) {
	var n int64
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Number int64 `json:"number"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if atomic.AddInt64(&n, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"result": sqrtOrZero(req.Number)})
	})

	cfg := testConfig()
	cfg.URL = srv.URL
	cfg.Timeout = 100 * time.Millisecond
	cfg.Tolerance.LatencyLowerBoundMs = 0
	cfg.Tolerance.LatencyUpperBoundMs = 1000
	r, err := NewLoadRunner(cfg, NewHTTPClient(srv.URL, 10), nil)
	require.NoError(t, err)

	start := time.Now()
	results, err := r.Run(context.Background(), []int{5}, 1, 100)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Less(t, elapsed, 2*time.Second)
	assert.GreaterOrEqual(t, elapsed, cfg.Timeout)
	assert.Equal(t, 0.8, results[0].SuccessRate)
	assert.Equal(t, map[ErrorKind]int{ErrorTransport: 1}, results[0].ErrorCounts)
}

func TestLoadRunRejectsBadLevels(t *testing.T) {
	fc := &fakeCaller{}
	r, err := NewLoadRunner(testConfig(), fc, nil)
	require.NoError(t, err)

	_, err = r.Run(context.Background(), nil, 1, 10)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = r.Run(context.Background(), []int{10, 0}, 1, 10)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = r.Run(context.Background(), []int{10}, 10, 1)
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.EqualValues(t, 0, fc.calls)
}

func TestLoadRunStopsBetweenLevelsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fc := &fakeCaller{latencyMs: 150}
	r, err := NewLoadRunner(testConfig(), fc, nil)
	require.NoError(t, err)
	r.OnBurst = func(done, total int, res BurstResult) {
		cancel()
	}

	results, err := r.Run(ctx, []int{3, 5, 7}, 1, 10)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Concurrency)
	assert.EqualValues(t, 3, fc.calls)
}

func TestLoadRunCancelReleasesStragglers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fc := &fakeCaller{hold: make(chan struct{})}
	r, err := NewLoadRunner(testConfig(), fc, nil)
	require.NoError(t, err)

	go func() {
		for atomic.LoadInt64(&fc.inflight) < 4 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	results, err := r.Run(ctx, []int{4, 4}, 1, 10)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].SuccessRate)
	assert.Equal(t, map[ErrorKind]int{ErrorTransport: 4}, results[0].ErrorCounts)
}

func TestAggregateBurst(t *testing.T) {
	records := []OutcomeRecord{
		{Input: 4, Result: floatPtr(2), LatencyMs: 100, Success: true},
		{Input: 9, Result: floatPtr(3), LatencyMs: 300, ErrorKind: ErrorLatencyBounds},
		{Input: 1, ErrorKind: ErrorTransport},
		{Input: 16, Result: floatPtr(4), LatencyMs: 200, Success: true},
	}
	res := aggregateBurst(4, records, 2*time.Second)
	assert.Equal(t, 0.5, res.SuccessRate)
	assert.Equal(t, 150.0, res.AvgLatencyMs)
	assert.Equal(t, 2.0, res.Throughput)
	assert.InDelta(t, 300, res.MaxLatencyMs, 1)
	assert.Equal(t, map[ErrorKind]int{ErrorLatencyBounds: 1, ErrorTransport: 1}, res.ErrorCounts)
}
