package runner

import (
	"time"
)

// ErrorKind classifies why a request did not succeed. The zero value means none.
type ErrorKind string

const (
	ErrorNone            ErrorKind = ""
	ErrorTransport       ErrorKind = "transport"
	ErrorIncorrectResult ErrorKind = "incorrect_result"
	ErrorLatencyBounds   ErrorKind = "latency_out_of_bounds"
	ErrorOracleUndefined ErrorKind = "oracle_undefined"
)

// ErrorKinds lists every failure kind in reporting order.
var ErrorKinds = []ErrorKind{
	ErrorTransport,
	ErrorIncorrectResult,
	ErrorLatencyBounds,
	ErrorOracleUndefined,
}

type ToleranceConfig struct {
	CorrectnessEpsilon  float64 `mapstructure:"epsilon" json:"epsilon"`
	LatencyLowerBoundMs float64 `mapstructure:"latency_min" json:"latency_min_ms"`
	LatencyUpperBoundMs float64 `mapstructure:"latency_max" json:"latency_max_ms"`
}

type Config struct {
	URL       string          `mapstructure:"url" json:"url"`
	Oracle    string          `mapstructure:"oracle" json:"oracle"`
	Tolerance ToleranceConfig `mapstructure:"tolerance" json:"tolerance"`
	Timeout   time.Duration   `mapstructure:"timeout" json:"timeout"`

	// Input range, inclusive on both ends
	Low  int64 `mapstructure:"min" json:"min"`
	High int64 `mapstructure:"max" json:"max"`

	// Functional pass
	Count int `mapstructure:"count" json:"count"`

	// Load pass
	Levels []int `mapstructure:"levels" json:"levels"`

	Seed     int64 `mapstructure:"seed" json:"seed"`
	PoolSize int   `mapstructure:"pool_size" json:"pool_size"`
}

// DefaultConfig mirrors the settings the harness was first used with against
// the /sqrt service.
func DefaultConfig() Config {
	return Config{
		URL:    "http://127.0.0.1:8000/sqrt",
		Oracle: "sqrt",
		Tolerance: ToleranceConfig{
			CorrectnessEpsilon:  1e-6,
			LatencyLowerBoundMs: 100,
			LatencyUpperBoundMs: 200,
		},
		Timeout:  5 * time.Second,
		Low:      1,
		High:     10000,
		Count:    10000,
		Levels:   []int{10, 100, 200, 400, 600, 800, 1000, 10000},
		PoolSize: 2000,
	}
}

// RawResponse is a completed call. Result is nil when the body carried no
// numeric result.
type RawResponse struct {
	Result    *float64
	LatencyMs float64
}

type OutcomeRecord struct {
	Input     int64     `json:"input"`
	Result    *float64  `json:"result"`
	LatencyMs float64   `json:"latency_ms"`
	Success   bool      `json:"success"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
	Cause     string    `json:"cause,omitempty"`
}

type BurstResult struct {
	Concurrency  int     `json:"concurrency"`
	SuccessRate  float64 `json:"success_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`

	Successes    int               `json:"successes"`
	P50LatencyMs float64           `json:"p50_latency_ms"`
	P99LatencyMs float64           `json:"p99_latency_ms"`
	MaxLatencyMs float64           `json:"max_latency_ms"`
	ErrorCounts  map[ErrorKind]int `json:"error_counts,omitempty"`
	Elapsed      time.Duration     `json:"elapsed"`
	Throughput   float64           `json:"throughput"`
}

type FunctionalReport struct {
	SuccessRate float64           `json:"success_rate"`
	Successes   int               `json:"successes"`
	Records     []OutcomeRecord   `json:"records"`
	ErrorCounts map[ErrorKind]int `json:"error_counts,omitempty"`

	// Latency over completed requests (transport failures excluded)
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`

	Elapsed time.Duration `json:"elapsed"`
}

// RecordFunc is invoked once per completed functional request.
type RecordFunc func(done, total int, rec OutcomeRecord)

// BurstFunc is invoked once per completed load burst.
type BurstFunc func(done, total int, res BurstResult)

// RequestFunc is invoked once per completed request inside a burst, from the
// request's own goroutine.
type RequestFunc func(concurrency int, rec OutcomeRecord)

// Label is the human-readable form used in reports and on screen.
func (k ErrorKind) Label() string {
	switch k {
	case ErrorNone:
		return ""
	case ErrorTransport:
		return "Request failed"
	case ErrorIncorrectResult:
		return "Incorrect result"
	case ErrorLatencyBounds:
		return "Latency out of bounds"
	case ErrorOracleUndefined:
		return "Reference undefined"
	}
	return string(k)
}
