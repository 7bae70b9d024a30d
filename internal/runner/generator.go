package runner

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// NewRand returns a generator source. A zero seed is replaced by the clock.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generate draws count independent integers uniformly from [low, high].
// Values may repeat. rng is not safe for concurrent use, so callers own it.
func Generate(count int, low, high int64, rng *rand.Rand) ([]int64, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: count must not be negative, got %d", ErrInvalidRange, count)
	}
	if err := checkRange(low, high); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = NewRand(0)
	}

	inputs := make([]int64, count)
	span := uint64(high-low) + 1 // wraps to 0 for the full int64 range
	for i := range inputs {
		inputs[i] = low + int64(draw(rng, span))
	}
	return inputs, nil
}

// draw returns a uniform value in [0, span), or any uint64 when span is 0.
func draw(rng *rand.Rand, span uint64) uint64 {
	if span == 0 {
		return rng.Uint64()
	}
	if span <= math.MaxInt64 {
		return uint64(rng.Int63n(int64(span)))
	}
	// Reject the tail so the modulo stays unbiased.
	limit := math.MaxUint64 - math.MaxUint64%span
	for {
		v := rng.Uint64()
		if v < limit {
			return v % span
		}
	}
}
