package runner

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidRange  = errors.New("invalid range")
	ErrInvalidConfig = errors.New("invalid config")
)

// TransportError means a single request could not complete. It is recorded
// as data and never aborts a run.
type TransportError struct {
	Cause string
	Err   error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Cause, e.Err)
	}
	return e.Cause
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func checkRange(low, high int64) error {
	if low > high {
		return fmt.Errorf("%w: min %d is greater than max %d", ErrInvalidRange, low, high)
	}
	return nil
}

// Validate checks everything both passes need before any request is sent.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	if _, err := OracleByName(c.Oracle); err != nil {
		return err
	}
	return c.Tolerance.Validate()
}

func (t ToleranceConfig) Validate() error {
	for name, v := range map[string]float64{
		"epsilon":     t.CorrectnessEpsilon,
		"latency_min": t.LatencyLowerBoundMs,
		"latency_max": t.LatencyUpperBoundMs,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a finite number, got %g", ErrInvalidConfig, name, v)
		}
	}
	if t.CorrectnessEpsilon < 0 {
		return fmt.Errorf("%w: epsilon must not be negative, got %g", ErrInvalidConfig, t.CorrectnessEpsilon)
	}
	if t.LatencyLowerBoundMs > t.LatencyUpperBoundMs {
		return fmt.Errorf("%w: latency bounds [%g, %g] are inverted",
			ErrInvalidConfig, t.LatencyLowerBoundMs, t.LatencyUpperBoundMs)
	}
	return nil
}

func validateLevels(levels []int) error {
	if len(levels) == 0 {
		return fmt.Errorf("%w: at least one concurrency level is required", ErrInvalidConfig)
	}
	for i, n := range levels {
		if n < 1 {
			return fmt.Errorf("%w: concurrency level #%d is %d, must be at least 1", ErrInvalidConfig, i, n)
		}
	}
	return nil
}

// ValidateFunctional is Validate plus the functional pass parameters taken
// from c.
func (c Config) ValidateFunctional() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Count < 0 {
		return fmt.Errorf("%w: count must not be negative, got %d", ErrInvalidRange, c.Count)
	}
	return checkRange(c.Low, c.High)
}

// ValidateLoad is Validate plus the load pass parameters taken from c.
func (c Config) ValidateLoad() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := validateLevels(c.Levels); err != nil {
		return err
	}
	return checkRange(c.Low, c.High)
}
