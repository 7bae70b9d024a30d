package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"oraclebench/internal/runner"
)

func TestKindColorsAreDistinct(t *testing.T) {
	seen := map[lipgloss.Color]runner.ErrorKind{}
	for _, k := range runner.ErrorKinds {
		c, ok := Kind(k).GetForeground().(lipgloss.Color)
		if !assert.True(t, ok, "kind %s has no color", k) {
			continue
		}
		prev, dup := seen[c]
		assert.False(t, dup, "%s and %s share a color", prev, k)
		seen[c] = k
	}
	assert.Len(t, seen, len(runner.ErrorKinds))
}

func TestKindFallsBackToError(t *testing.T) {
	assert.Equal(t, Error.GetForeground(), Kind("mystery").GetForeground())
}

func TestRateThresholds(t *testing.T) {
	assert.Equal(t, Success.GetForeground(), Rate(1).GetForeground())
	assert.Equal(t, Warn.GetForeground(), Rate(0.95).GetForeground())
	assert.Equal(t, Error.GetForeground(), Rate(0.5).GetForeground())
}
