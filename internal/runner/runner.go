package runner

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"go.uber.org/zap"

	"oraclebench/internal/stats"
)

// core is what both passes share: one Caller, one Evaluator and the input
// source. Only the Caller's connection pool is touched concurrently.
type core struct {
	cfg       Config
	caller    Caller
	evaluator Evaluator
	timeout   time.Duration
	rng       *rand.Rand
	logger    *zap.Logger
}

// newCore validates cfg and builds an HTTPClient when caller is nil.
func newCore(cfg Config, caller Caller, logger *zap.Logger) (*core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if caller == nil {
		u, err := url.Parse(cfg.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: url %q is not an absolute URL", ErrInvalidConfig, cfg.URL)
		}
		caller = NewHTTPClient(cfg.URL, cfg.PoolSize)
	}
	oracle, err := OracleByName(cfg.Oracle)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &core{
		cfg:       cfg,
		caller:    caller,
		evaluator: NewEvaluator(cfg.Tolerance, oracle),
		timeout:   cfg.Timeout,
		rng:       NewRand(cfg.Seed),
		logger:    logger,
	}, nil
}

// call dispatches one input and evaluates the outcome.
func (c *core) call(ctx context.Context, input int64) OutcomeRecord {
	resp, err := c.caller.Call(ctx, input, c.timeout)
	return c.evaluator.Evaluate(input, resp, err)
}

// record feeds one outcome into an aggregate.
func record(st *stats.Stats, rec OutcomeRecord) {
	st.Add(
		rec.Success,
		string(rec.ErrorKind),
		time.Duration(rec.LatencyMs*float64(time.Millisecond)),
		rec.ErrorKind != ErrorTransport,
	)
}

func errorCounts(st *stats.Stats) map[ErrorKind]int {
	raw := st.GetErrorCounts()
	if len(raw) == 0 {
		return nil
	}
	out := make(map[ErrorKind]int, len(raw))
	for k, v := range raw {
		out[ErrorKind(k)] = int(v)
	}
	return out
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
