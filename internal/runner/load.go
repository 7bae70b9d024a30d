package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"oraclebench/internal/stats"
)

// LoadRunner fires one burst per concurrency level. Requests inside a burst
// run concurrently; bursts run strictly one after another.
//
// A level is a burst size, not a sustained rate: all n requests are released
// at once with no pacing between them.
type LoadRunner struct {
	*core

	// OnBurst, if set, is called after each level completes.
	OnBurst BurstFunc
	// OnRequest, if set, is called from each request goroutine as it finishes.
	OnRequest RequestFunc
}

func NewLoadRunner(cfg Config, caller Caller, logger *zap.Logger) (*LoadRunner, error) {
	c, err := newCore(cfg, caller, logger)
	if err != nil {
		return nil, err
	}
	return &LoadRunner{core: c}, nil
}

// Run returns one BurstResult per level, in the order given. Request failures
// only lower the burst's success rate. If ctx is canceled between levels the
// bursts completed so far are returned with ctx.Err().
func (r *LoadRunner) Run(ctx context.Context, levels []int, low, high int64) ([]BurstResult, error) {
	if err := validateLevels(levels); err != nil {
		return nil, err
	}
	if err := checkRange(low, high); err != nil {
		return nil, err
	}

	r.logger.Info("load test started", zap.Ints("levels", levels))

	results := make([]BurstResult, 0, len(levels))
	for i, n := range levels {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("load test canceled", zap.Int("completed_levels", i), zap.Error(err))
			return results, err
		}

		res, err := r.burst(ctx, n, low, high)
		if err != nil {
			return results, err
		}
		results = append(results, res)

		r.logger.Info("burst finished",
			zap.Int("concurrency", res.Concurrency),
			zap.Float64("success_rate", res.SuccessRate),
			zap.Float64("avg_latency_ms", res.AvgLatencyMs),
			zap.Duration("elapsed", res.Elapsed))

		if r.OnBurst != nil {
			r.OnBurst(i+1, len(levels), res)
		}
	}
	return results, nil
}

func (r *LoadRunner) burst(ctx context.Context, n int, low, high int64) (BurstResult, error) {
	inputs, err := Generate(n, low, high, r.rng)
	if err != nil {
		return BurstResult{}, err
	}

	// Each goroutine owns exactly one slot.
	records := make([]OutcomeRecord, n)
	start := time.Now()

	// Goroutines never return an error, so Wait is purely the join barrier
	// and one failed request cannot cancel its siblings.
	var g errgroup.Group
	for i, input := range inputs {
		g.Go(func() error {
			rec := r.call(ctx, input)
			records[i] = rec
			if r.OnRequest != nil {
				r.OnRequest(n, rec)
			}
			return nil
		})
	}
	_ = g.Wait()

	return aggregateBurst(n, records, time.Since(start)), nil
}

// aggregateBurst folds a burst's records. Failed requests count 0 ms toward
// the average latency.
func aggregateBurst(n int, records []OutcomeRecord, elapsed time.Duration) BurstResult {
	st := stats.NewStats()
	var sumLatency float64
	for _, rec := range records {
		record(st, rec)
		sumLatency += rec.LatencyMs
	}

	snap := st.Snapshot()
	res := BurstResult{
		Concurrency:  n,
		Successes:    int(snap.Success),
		SuccessRate:  ratio(int(snap.Success), n),
		P50LatencyMs: snap.P50Ms,
		P99LatencyMs: snap.P99Ms,
		MaxLatencyMs: snap.MaxMs,
		ErrorCounts:  errorCounts(st),
		Elapsed:      elapsed,
	}
	if n > 0 {
		res.AvgLatencyMs = sumLatency / float64(n)
	}
	if elapsed > 0 {
		res.Throughput = float64(n) / elapsed.Seconds()
	}
	return res
}
