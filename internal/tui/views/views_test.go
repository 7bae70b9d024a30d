package views

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oraclebench/internal/report"
	"oraclebench/internal/runner"
	"oraclebench/internal/storage"
)

func TestFormRoundTripsConfig(t *testing.T) {
	cfg := runner.DefaultConfig()
	cfg.Seed = 7

	got, err := NewFormView(cfg, ModeFunctional).GetConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestFormParsesLevels(t *testing.T) {
	f := NewFormView(runner.DefaultConfig(), ModeLoad)
	f.Inputs[FieldLevels].SetValue(" 5, 50 ,500,")

	got, err := f.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 50, 500}, got.Levels)
	assert.Equal(t, ModeLoad, f.Mode())
}

func TestFormRejectsBadNumber(t *testing.T) {
	f := NewFormView(runner.DefaultConfig(), ModeFunctional)
	f.Inputs[FieldEpsilon].SetValue("tiny")

	_, err := f.GetConfig()
	assert.ErrorIs(t, err, runner.ErrInvalidConfig)
}

func TestFormTimeoutInMilliseconds(t *testing.T) {
	f := NewFormView(runner.DefaultConfig(), ModeFunctional)
	f.Inputs[FieldTimeout].SetValue("250")

	got, err := f.GetConfig()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, got.Timeout)
}

func TestFormSpaceTogglesModeAndFields(t *testing.T) {
	f := NewFormView(runner.DefaultConfig(), ModeFunctional)
	assert.Contains(t, f.visible(), FieldCount)

	f, _ = f.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Equal(t, ModeLoad, f.Mode())
	assert.Contains(t, f.visible(), FieldLevels)
	assert.NotContains(t, f.visible(), FieldCount)
}

func TestFormTabWraps(t *testing.T) {
	f := NewFormView(runner.DefaultConfig(), ModeFunctional)
	assert.Equal(t, FieldTimeout, f.nextFocus(FieldMode, -1))
	assert.Equal(t, FieldMode, f.nextFocus(FieldTimeout, 1))
	assert.Equal(t, FieldCount, f.nextFocus(FieldOracle, 1))
}

func TestHistoryReplaySelectsConfig(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := runner.DefaultConfig()
	cfg.URL = "http://example.test/sqrt"
	item, err := storage.NewHistoryItem(report.LoadSummary(cfg, []runner.BurstResult{
		{Concurrency: 10, Successes: 9, SuccessRate: 0.9, P99LatencyMs: 12},
	}))
	require.NoError(t, err)
	require.NoError(t, store.Save(item))

	h := NewHistoryView(store)
	require.Len(t, h.Table.Rows(), 1)
	assert.Equal(t, "12.00", h.Table.Rows()[0][5])

	h, _ = h.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, h.Selected)
	assert.Equal(t, ModeLoad, h.Selected.Mode)
	assert.Equal(t, cfg.URL, h.Selected.Config.URL)
}

func TestDashboardBurstTable(t *testing.T) {
	cfg := runner.DefaultConfig()
	cfg.Levels = []int{2, 4}
	d := NewDashboardView(cfg, ModeLoad, 100, 40)
	assert.Equal(t, uint64(6), d.Total)

	d.AddBurst(runner.BurstResult{Concurrency: 2, SuccessRate: 1, AvgLatencyMs: 3})
	require.Len(t, d.Table.Rows(), 1)
	assert.Equal(t, "100.00%", d.Table.Rows()[0][1])
	assert.Equal(t, []float64{3}, d.Latency.Data)
}
