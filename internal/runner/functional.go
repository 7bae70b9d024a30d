package runner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"oraclebench/internal/stats"
)

// FunctionalRunner verifies correctness at low, predictable load: one request
// in flight at a time, records kept in generation order.
type FunctionalRunner struct {
	*core

	// OnRecord, if set, is called after every request.
	OnRecord RecordFunc
}

// NewFunctionalRunner builds a runner from cfg. caller may be nil, in which
// case requests go over HTTP to cfg.URL.
func NewFunctionalRunner(cfg Config, caller Caller, logger *zap.Logger) (*FunctionalRunner, error) {
	c, err := newCore(cfg, caller, logger)
	if err != nil {
		return nil, err
	}
	return &FunctionalRunner{core: c}, nil
}

// Run sends count inputs drawn from [low, high] one after another. Request
// failures end up in the records; only bad parameters or ctx cancellation
// produce an error. On cancellation the report covers the requests made so
// far.
func (r *FunctionalRunner) Run(ctx context.Context, count int, low, high int64) (FunctionalReport, error) {
	inputs, err := Generate(count, low, high, r.rng)
	if err != nil {
		return FunctionalReport{}, err
	}

	r.logger.Info("functional test started",
		zap.Int("count", count),
		zap.Int64("min", low),
		zap.Int64("max", high))

	st := stats.NewStats()
	report := FunctionalReport{Records: make([]OutcomeRecord, 0, count)}
	start := time.Now()

	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("functional test canceled", zap.Int("done", i), zap.Error(err))
			finishFunctional(&report, st, time.Since(start))
			return report, err
		}

		rec := r.call(ctx, input)
		report.Records = append(report.Records, rec)
		record(st, rec)

		if !rec.Success {
			r.logger.Debug("request failed",
				zap.Int64("input", rec.Input),
				zap.String("kind", string(rec.ErrorKind)),
				zap.Float64("latency_ms", rec.LatencyMs),
				zap.String("cause", rec.Cause))
		}
		if r.OnRecord != nil {
			r.OnRecord(i+1, count, rec)
		}
	}

	finishFunctional(&report, st, time.Since(start))
	r.logger.Info("functional test finished",
		zap.Int("successes", report.Successes),
		zap.Float64("success_rate", report.SuccessRate),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

func finishFunctional(report *FunctionalReport, st *stats.Stats, elapsed time.Duration) {
	snap := st.Snapshot()
	report.Successes = int(snap.Success)
	report.SuccessRate = st.SuccessRate()
	report.ErrorCounts = errorCounts(st)
	report.MeanLatencyMs = snap.MeanMs
	report.P50LatencyMs = snap.P50Ms
	report.P90LatencyMs = snap.P90Ms
	report.P99LatencyMs = snap.P99Ms
	report.MaxLatencyMs = snap.MaxMs
	report.Elapsed = elapsed
}
