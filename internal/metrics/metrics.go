// Package metrics exposes run outcomes as Prometheus series so a CI job or
// dashboard can scrape a long load run while it is in progress.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"oraclebench/internal/runner"
)

var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.25, 0.5, 1, 2, 5}

const (
	ModeFunctional = "functional"
	ModeLoad       = "load"
)

type Recorder struct {
	registry *prometheus.Registry

	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	burstSuccess *prometheus.GaugeVec
	burstLatency *prometheus.GaugeVec
}

// NewRecorder registers its collectors on a private registry, so several
// recorders can coexist in one process (and in tests).
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oraclebench",
			Name:      "requests_total",
			Help:      "Requests sent to the service under test, by outcome",
		}, []string{"mode", "error_kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oraclebench",
			Name:      "request_latency_seconds",
			Help:      "Round-trip latency of completed requests",
			Buckets:   latencyBuckets,
		}, []string{"mode"}),
		burstSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oraclebench",
			Name:      "burst_success_ratio",
			Help:      "Success ratio of the last burst at each concurrency level",
		}, []string{"concurrency"}),
		burstLatency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "oraclebench",
			Name:      "burst_avg_latency_seconds",
			Help:      "Average latency of the last burst at each concurrency level, failures counted as 0",
		}, []string{"concurrency"}),
	}
	r.registry.MustRegister(r.requests, r.latency, r.burstSuccess, r.burstLatency)
	return r
}

// Functional has the runner.RecordFunc signature.
func (r *Recorder) Functional(done, total int, rec runner.OutcomeRecord) {
	r.observe(ModeFunctional, rec)
}

// Request has the runner.RequestFunc signature.
func (r *Recorder) Request(concurrency int, rec runner.OutcomeRecord) {
	r.observe(ModeLoad, rec)
}

// Burst has the runner.BurstFunc signature.
func (r *Recorder) Burst(done, total int, res runner.BurstResult) {
	level := strconv.Itoa(res.Concurrency)
	r.burstSuccess.With(prometheus.Labels{"concurrency": level}).Set(res.SuccessRate)
	r.burstLatency.With(prometheus.Labels{"concurrency": level}).Set(res.AvgLatencyMs / 1000.0)
}

func (r *Recorder) observe(mode string, rec runner.OutcomeRecord) {
	kind := string(rec.ErrorKind)
	if kind == "" {
		kind = "none"
	}
	r.requests.With(prometheus.Labels{"mode": mode, "error_kind": kind}).Inc()
	if rec.ErrorKind != runner.ErrorTransport {
		r.latency.With(prometheus.Labels{"mode": mode}).Observe(rec.LatencyMs / 1000.0)
	}
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
