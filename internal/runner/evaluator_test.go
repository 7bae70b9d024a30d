package runner

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultTolerance = ToleranceConfig{
	CorrectnessEpsilon:  1e-6,
	LatencyLowerBoundMs: 100,
	LatencyUpperBoundMs: 200,
}

func TestEvaluateEpsilonBoundary(t *testing.T) {
	resp := RawResponse{Result: floatPtr(4.0000001), LatencyMs: 120}

	strict := defaultTolerance
	strict.CorrectnessEpsilon = 1e-8
	rec := NewEvaluator(strict, SqrtOracle).Evaluate(16, resp, nil)
	assert.False(t, rec.Success)
	assert.Equal(t, ErrorIncorrectResult, rec.ErrorKind)

	rec = NewEvaluator(defaultTolerance, SqrtOracle).Evaluate(16, resp, nil)
	assert.True(t, rec.Success)
	assert.Equal(t, ErrorNone, rec.ErrorKind)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 4.0000001, *rec.Result)
}

func TestEvaluateLatencyOutOfBounds(t *testing.T) {
	e := NewEvaluator(defaultTolerance, SqrtOracle)

	rec := e.Evaluate(25, RawResponse{Result: floatPtr(5.0), LatencyMs: 250}, nil)
	assert.False(t, rec.Success)
	assert.Equal(t, ErrorLatencyBounds, rec.ErrorKind)
	assert.Equal(t, 250.0, rec.LatencyMs)

	rec = e.Evaluate(25, RawResponse{Result: floatPtr(5.0), LatencyMs: 99.9}, nil)
	assert.Equal(t, ErrorLatencyBounds, rec.ErrorKind)
}

func TestEvaluateLatencyBoundsAreInclusive(t *testing.T) {
	e := NewEvaluator(defaultTolerance, SqrtOracle)
	for _, ms := range []float64{100, 200} {
		rec := e.Evaluate(4, RawResponse{Result: floatPtr(2), LatencyMs: ms}, nil)
		assert.True(t, rec.Success, "latency %v", ms)
	}
}

func TestEvaluateCorrectnessTakesPrecedenceOverLatency(t *testing.T) {
	rec := NewEvaluator(defaultTolerance, SqrtOracle).
		Evaluate(25, RawResponse{Result: floatPtr(6.0), LatencyMs: 500}, nil)
	assert.Equal(t, ErrorIncorrectResult, rec.ErrorKind)
}

func TestEvaluateTransportFailure(t *testing.T) {
	err := &TransportError{Cause: "timeout", Err: context.DeadlineExceeded}
	rec := NewEvaluator(defaultTolerance, SqrtOracle).
		Evaluate(9, RawResponse{Result: floatPtr(3), LatencyMs: 150}, err)

	assert.Equal(t, OutcomeRecord{
		Input:     9,
		ErrorKind: ErrorTransport,
		Cause:     "timeout: context deadline exceeded",
	}, rec)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestEvaluateMissingOrNonNumericResult(t *testing.T) {
	e := NewEvaluator(defaultTolerance, SqrtOracle)

	rec := e.Evaluate(16, RawResponse{LatencyMs: 150}, nil)
	assert.Equal(t, ErrorIncorrectResult, rec.ErrorKind)
	assert.Nil(t, rec.Result)

	rec = e.Evaluate(16, RawResponse{Result: floatPtr(math.NaN()), LatencyMs: 150}, nil)
	assert.Equal(t, ErrorIncorrectResult, rec.ErrorKind)

	rec = e.Evaluate(16, RawResponse{Result: floatPtr(math.Inf(1)), LatencyMs: 150}, nil)
	assert.Equal(t, ErrorIncorrectResult, rec.ErrorKind)
}

func TestEvaluateOracleUndefined(t *testing.T) {
	rec := NewEvaluator(defaultTolerance, SqrtOracle).
		Evaluate(-4, RawResponse{Result: floatPtr(2), LatencyMs: 150}, nil)
	assert.False(t, rec.Success)
	assert.Equal(t, ErrorOracleUndefined, rec.ErrorKind)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	e := NewEvaluator(defaultTolerance, SqrtOracle)
	resp := RawResponse{Result: floatPtr(3.0), LatencyMs: 130}
	assert.Equal(t, e.Evaluate(9, resp, nil), e.Evaluate(9, resp, nil))
}

func TestEvaluateErrorKindMatchesSuccess(t *testing.T) {
	e := NewEvaluator(defaultTolerance, SqrtOracle)
	cases := []struct {
		input int64
		resp  RawResponse
		err   error
	}{
		{16, RawResponse{Result: floatPtr(4), LatencyMs: 150}, nil},
		{16, RawResponse{Result: floatPtr(5), LatencyMs: 150}, nil},
		{16, RawResponse{Result: floatPtr(4), LatencyMs: 10}, nil},
		{-1, RawResponse{LatencyMs: 150}, nil},
		{16, RawResponse{}, &TransportError{Cause: "refused"}},
	}
	for _, c := range cases {
		rec := e.Evaluate(c.input, c.resp, c.err)
		assert.Equal(t, rec.Success, rec.ErrorKind == ErrorNone, "%+v", rec)
	}
}

func TestEvaluateDoesNotAliasResponse(t *testing.T) {
	v := 4.0
	rec := NewEvaluator(defaultTolerance, SqrtOracle).Evaluate(16, RawResponse{Result: &v, LatencyMs: 150}, nil)
	v = 99
	assert.Equal(t, 4.0, *rec.Result)
}

func TestOracleByName(t *testing.T) {
	o, err := OracleByName("")
	require.NoError(t, err)
	ref, ok := o(81)
	assert.True(t, ok)
	assert.Equal(t, 9.0, ref)

	o, err = OracleByName("Square")
	require.NoError(t, err)
	ref, _ = o(-3)
	assert.Equal(t, 9.0, ref)

	_, err = OracleByName("cbrt")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
