package runner

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Oracle computes the reference value for an input. ok is false where the
// reference is undefined.
type Oracle func(input int64) (ref float64, ok bool)

func SqrtOracle(input int64) (float64, bool) {
	if input < 0 {
		return 0, false
	}
	return math.Sqrt(float64(input)), true
}

func SquareOracle(input int64) (float64, bool) {
	f := float64(input)
	return f * f, true
}

func IdentityOracle(input int64) (float64, bool) {
	return float64(input), true
}

var oracles = map[string]Oracle{
	"sqrt":     SqrtOracle,
	"square":   SquareOracle,
	"identity": IdentityOracle,
}

// OracleByName resolves a configured oracle. An empty name selects sqrt.
func OracleByName(name string) (Oracle, error) {
	if name == "" {
		name = "sqrt"
	}
	o, ok := oracles[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(oracles))
		for k := range oracles {
			names = append(names, k)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("%w: unknown oracle %q (have %s)", ErrInvalidConfig, name, strings.Join(names, ", "))
	}
	return o, nil
}

// Evaluator turns one call outcome into an OutcomeRecord. It does no I/O and
// holds no mutable state.
type Evaluator struct {
	Tolerance ToleranceConfig
	Oracle    Oracle
}

func NewEvaluator(tol ToleranceConfig, oracle Oracle) Evaluator {
	if oracle == nil {
		oracle = SqrtOracle
	}
	return Evaluator{Tolerance: tol, Oracle: oracle}
}

func (e Evaluator) Evaluate(input int64, resp RawResponse, err error) OutcomeRecord {
	rec := OutcomeRecord{Input: input}

	if err != nil {
		rec.ErrorKind = ErrorTransport
		rec.Cause = err.Error()
		return rec
	}

	rec.LatencyMs = resp.LatencyMs
	if resp.Result != nil {
		v := *resp.Result
		rec.Result = &v
	}

	oracle := e.Oracle
	if oracle == nil {
		oracle = SqrtOracle
	}
	ref, ok := oracle(input)
	if !ok {
		rec.ErrorKind = ErrorOracleUndefined
		return rec
	}

	correct := rec.Result != nil && withinEpsilon(*rec.Result, ref, e.Tolerance.CorrectnessEpsilon)
	inBounds := e.Tolerance.LatencyLowerBoundMs <= rec.LatencyMs && rec.LatencyMs <= e.Tolerance.LatencyUpperBoundMs

	switch {
	case !correct:
		rec.ErrorKind = ErrorIncorrectResult
	case !inBounds:
		rec.ErrorKind = ErrorLatencyBounds
	default:
		rec.Success = true
	}
	return rec
}

// withinEpsilon is false for NaN on either side.
func withinEpsilon(got, want, eps float64) bool {
	return math.Abs(got-want) <= eps
}
