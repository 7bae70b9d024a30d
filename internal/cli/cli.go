package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"oraclebench/internal/metrics"
	"oraclebench/internal/report"
	"oraclebench/internal/runner"
	"oraclebench/internal/storage"
)

// Options carries everything a headless run needs besides the runner config.
type Options struct {
	Config runner.Config

	OutPrefix      string
	MinSuccessRate float64 // fraction in [0, 1]
	MetricsAddr    string
	HistoryPath    string

	Logger *zap.Logger
	Out    io.Writer
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
}

const rule = "======================================================================"

// progressInterval throttles the functional progress line.
const progressInterval = 200 * time.Millisecond

// RunFunctional runs the functional pass and reports whether the success rate
// met opts.MinSuccessRate.
func RunFunctional(ctx context.Context, opts Options) (bool, error) {
	opts.defaults()
	cfg := opts.Config

	r, err := runner.NewFunctionalRunner(cfg, nil, opts.Logger)
	if err != nil {
		return false, err
	}
	rec := startMetrics(ctx, opts)

	printHeader(opts.Out, "FUNCTIONAL VERIFICATION", cfg)
	fmt.Fprintf(opts.Out, "Requests   : %d (sequential)\n%s\n\n", cfg.Count, rule)

	start := time.Now()
	var last time.Time
	var ok, failed int
	r.OnRecord = func(done, total int, o runner.OutcomeRecord) {
		if o.Success {
			ok++
		} else {
			failed++
		}
		if rec != nil {
			rec.Functional(done, total, o)
		}
		if done < total && time.Since(last) < progressInterval {
			return
		}
		last = time.Now()
		pct := float64(done) / float64(total)
		fmt.Fprintf(opts.Out, "\r%s %3.0f%% | %d/%d | %s | OK: %d | Err: %d",
			progressBar(pct, 20), pct*100, done, total,
			time.Since(start).Round(time.Second), ok, failed)
	}

	res, runErr := r.Run(ctx, cfg.Count, cfg.Low, cfg.High)
	if runErr != nil && len(res.Records) == 0 {
		return false, runErr
	}

	printFunctionalSummary(opts.Out, res)
	passed := verdict(opts.Out, "success rate", res.SuccessRate, opts.MinSuccessRate)

	if opts.OutPrefix != "" {
		files, err := report.WriteFunctional(opts.OutPrefix, cfg, res)
		if err != nil {
			return false, fmt.Errorf("write reports: %w", err)
		}
		fmt.Fprintf(opts.Out, "\n💾 Reports saved: %s\n", strings.Join(files, ", "))
	}
	saveHistory(opts, report.FunctionalSummary(cfg, res))

	return passed && runErr == nil, runErr
}

// RunLoad runs one burst per level and reports whether every burst met
// opts.MinSuccessRate.
func RunLoad(ctx context.Context, opts Options) (bool, error) {
	opts.defaults()
	cfg := opts.Config

	r, err := runner.NewLoadRunner(cfg, nil, opts.Logger)
	if err != nil {
		return false, err
	}
	rec := startMetrics(ctx, opts)

	printHeader(opts.Out, "LOAD TEST", cfg)
	fmt.Fprintf(opts.Out, "Levels     : %s (burst sizes)\n%s\n\n", joinInts(cfg.Levels), rule)

	if rec != nil {
		r.OnRequest = rec.Request
	}
	r.OnBurst = func(done, total int, b runner.BurstResult) {
		if rec != nil {
			rec.Burst(done, total, b)
		}
		fmt.Fprintf(opts.Out, "%s %d/%d | Burst %6d | Success: %6.2f%% | Avg: %8.2f ms | P99: %8.2f ms | %s\n",
			progressBar(float64(done)/float64(total), 20), done, total,
			b.Concurrency, b.SuccessRate*100, b.AvgLatencyMs, b.P99LatencyMs,
			b.Elapsed.Round(time.Millisecond))
	}

	bursts, runErr := r.Run(ctx, cfg.Levels, cfg.Low, cfg.High)
	if runErr != nil && len(bursts) == 0 {
		return false, runErr
	}

	printLoadSummary(opts.Out, bursts)
	passed := true
	for _, b := range bursts {
		label := fmt.Sprintf("burst %d success rate", b.Concurrency)
		if !verdict(opts.Out, label, b.SuccessRate, opts.MinSuccessRate) {
			passed = false
		}
	}

	if opts.OutPrefix != "" {
		files, err := report.WriteLoad(opts.OutPrefix, cfg, bursts)
		if err != nil {
			return false, fmt.Errorf("write reports: %w", err)
		}
		fmt.Fprintf(opts.Out, "\n💾 Reports saved: %s\n", strings.Join(files, ", "))
	}
	saveHistory(opts, report.LoadSummary(cfg, bursts))

	return passed && runErr == nil, runErr
}

func startMetrics(ctx context.Context, opts Options) *metrics.Recorder {
	if opts.MetricsAddr == "" {
		return nil
	}
	rec := metrics.NewRecorder()
	go func() {
		if err := rec.Serve(ctx, opts.MetricsAddr, opts.Logger); err != nil {
			opts.Logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return rec
}

func saveHistory(opts Options, s report.Summary) {
	if opts.HistoryPath == "" {
		return
	}
	store, err := storage.NewStore(opts.HistoryPath)
	if err != nil {
		opts.Logger.Warn("history unavailable", zap.Error(err))
		return
	}
	defer store.Close()

	item, err := storage.NewHistoryItem(s)
	if err == nil {
		err = store.Save(item)
	}
	if err == nil {
		_, err = store.Prune(storage.DefaultKeep)
	}
	if err != nil {
		opts.Logger.Warn("saving history failed", zap.Error(err))
	}
}

func printHeader(out io.Writer, title string, cfg runner.Config) {
	fmt.Fprintf(out, "\n🚀 STARTING %s\n", title)
	fmt.Fprintf(out, "%s\n", rule)
	fmt.Fprintf(out, "Target URL : %s\n", cfg.URL)
	fmt.Fprintf(out, "Oracle     : %s (epsilon %g)\n", cfg.Oracle, cfg.Tolerance.CorrectnessEpsilon)
	fmt.Fprintf(out, "Latency    : [%g, %g] ms\n", cfg.Tolerance.LatencyLowerBoundMs, cfg.Tolerance.LatencyUpperBoundMs)
	fmt.Fprintf(out, "Inputs     : [%d, %d]\n", cfg.Low, cfg.High)
	fmt.Fprintf(out, "Timeout    : %s\n", cfg.Timeout)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printFunctionalSummary(out io.Writer, r runner.FunctionalReport) {
	fmt.Fprintf(out, "\n\n📊 FUNCTIONAL RESULTS\n")
	fmt.Fprintf(out, "%s\n", rule)
	fmt.Fprintf(out, "Duration       : %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "Requests Sent  : %d\n", len(r.Records))
	fmt.Fprintf(out, "Success        : %d\n", r.Successes)
	fmt.Fprintf(out, "Failures       : %d\n", len(r.Records)-r.Successes)
	fmt.Fprintf(out, "Success Rate   : %.2f%%\n", r.SuccessRate*100)
	fmt.Fprintf(out, "\n⏱️  RESPONSE TIMES (ms) [Completed Only]\n")
	fmt.Fprintf(out, "   Mean : %.2f\n", r.MeanLatencyMs)
	fmt.Fprintf(out, "   P50  : %.2f\n", r.P50LatencyMs)
	fmt.Fprintf(out, "   P90  : %.2f\n", r.P90LatencyMs)
	fmt.Fprintf(out, "   P99  : %.2f\n", r.P99LatencyMs)
	fmt.Fprintf(out, "   Max  : %.2f\n", r.MaxLatencyMs)
	printFailures(out, r.ErrorCounts)
	fmt.Fprintf(out, "%s\n", rule)
}

func printLoadSummary(out io.Writer, bursts []runner.BurstResult) {
	fmt.Fprintf(out, "\n📊 LOAD TEST RESULTS\n")
	fmt.Fprintf(out, "%s\n", rule)
	fmt.Fprintf(out, "%8s  %10s  %12s  %10s  %10s  %10s\n",
		"Burst", "Success", "Avg (ms)", "P50 (ms)", "P99 (ms)", "Req/s")
	total := map[runner.ErrorKind]int{}
	for _, b := range bursts {
		fmt.Fprintf(out, "%8d  %9.2f%%  %12.2f  %10.2f  %10.2f  %10.1f\n",
			b.Concurrency, b.SuccessRate*100, b.AvgLatencyMs, b.P50LatencyMs, b.P99LatencyMs, b.Throughput)
		for k, v := range b.ErrorCounts {
			total[k] += v
		}
	}
	printFailures(out, total)
	fmt.Fprintf(out, "%s\n", rule)
}

func printFailures(out io.Writer, counts map[runner.ErrorKind]int) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(out, "\n❌ FAILURE SUMMARY\n")
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		kind := runner.ErrorKind(k)
		fmt.Fprintf(out, "   %d x %s\n", counts[kind], kind.Label())
	}
}

// verdict prints PASS or FAIL for one rate against the threshold.
func verdict(out io.Writer, label string, rate, min float64) bool {
	passed := rate >= min
	if passed {
		color.New(color.FgGreen, color.Bold).Fprintf(out, "✅ PASS")
	} else {
		color.New(color.FgRed, color.Bold).Fprintf(out, "❌ FAIL")
	}
	fmt.Fprintf(out, " %s %.2f%% (threshold %.2f%%)\n", label, rate*100, min*100)
	return passed
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}
