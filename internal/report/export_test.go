package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"oraclebench/internal/runner"
)

func sampleRecords() []runner.OutcomeRecord {
	four := 4.0
	five := 5.0
	return []runner.OutcomeRecord{
		{Input: 16, Result: &four, LatencyMs: 120.5, Success: true},
		{Input: 25, Result: &five, LatencyMs: 250, ErrorKind: runner.ErrorLatencyBounds},
		{Input: 9, ErrorKind: runner.ErrorTransport, Cause: "timeout"},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestExportRecordsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	require.NoError(t, ExportRecordsCSV(sampleRecords(), path))

	rows := readCSV(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, recordHeader, rows[0])
	assert.Equal(t, []string{"16", "4", "120.50", "", "true", ""}, rows[1])
	assert.Equal(t, []string{"25", "5", "250.00", "Latency out of bounds", "false", ""}, rows[2])
	assert.Equal(t, []string{"9", "", "0.00", "Request failed", "false", "timeout"}, rows[3])
}

func TestExportRecordsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.xlsx")
	require.NoError(t, ExportRecordsXLSX(sampleRecords(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Input", rows[0][0])
	assert.Equal(t, "16", rows[1][0])
	assert.Equal(t, "Latency out of bounds", rows[2][3])
}

func TestExportBurstsCSV(t *testing.T) {
	bursts := []runner.BurstResult{
		{Concurrency: 10, SuccessRate: 1, AvgLatencyMs: 150, Successes: 10, Elapsed: 160 * time.Millisecond, Throughput: 62.5},
		{Concurrency: 100, SuccessRate: 0.9, AvgLatencyMs: 140, Successes: 90,
			ErrorCounts: map[runner.ErrorKind]int{runner.ErrorTransport: 10}},
	}
	path := filepath.Join(t.TempDir(), "bursts.csv")
	require.NoError(t, ExportBurstsCSV(bursts, path))

	rows := readCSV(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "10", rows[1][0])
	assert.Equal(t, "100.00", rows[1][1])
	assert.Equal(t, "160", rows[1][11])
	assert.Equal(t, "90.00", rows[2][1])
	assert.Equal(t, "10", rows[2][7])
}

func TestWriteLoadSummary(t *testing.T) {
	bursts := []runner.BurstResult{
		{Concurrency: 10, Successes: 10, SuccessRate: 1},
		{Concurrency: 30, Successes: 20, SuccessRate: 2.0 / 3,
			ErrorCounts: map[runner.ErrorKind]int{runner.ErrorIncorrectResult: 10}},
	}
	prefix := filepath.Join(t.TempDir(), "load")
	files, err := WriteLoad(prefix, runner.DefaultConfig(), bursts)
	require.NoError(t, err)
	require.Len(t, files, 2)

	data, err := os.ReadFile(prefix + "_summary.json")
	require.NoError(t, err)
	var s Summary
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, "load", s.Mode)
	assert.Equal(t, 40, s.Requests)
	assert.Equal(t, 0.75, s.SuccessRate)
	assert.Equal(t, 10, s.ErrorCounts[runner.ErrorIncorrectResult])
}

func TestWriteFunctional(t *testing.T) {
	r := runner.FunctionalReport{Records: sampleRecords(), Successes: 1, SuccessRate: 1.0 / 3}
	prefix := filepath.Join(t.TempDir(), "func")
	files, err := WriteFunctional(prefix, runner.DefaultConfig(), r)
	require.NoError(t, err)
	for _, f := range files {
		assert.FileExists(t, f)
	}
}
