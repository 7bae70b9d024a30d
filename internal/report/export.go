package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/xuri/excelize/v2"

	"oraclebench/internal/runner"
)

const sheetName = "Results"

var recordHeader = []string{"Input", "Output", "Latency (ms)", "Error", "Success", "Cause"}

func recordRow(rec runner.OutcomeRecord) []string {
	output := ""
	if rec.Result != nil {
		output = strconv.FormatFloat(*rec.Result, 'g', -1, 64)
	}
	return []string{
		strconv.FormatInt(rec.Input, 10),
		output,
		strconv.FormatFloat(rec.LatencyMs, 'f', 2, 64),
		rec.ErrorKind.Label(),
		strconv.FormatBool(rec.Success),
		rec.Cause,
	}
}

// ExportRecordsCSV writes one row per functional request, in run order.
func ExportRecordsCSV(records []runner.OutcomeRecord, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(recordHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := w.Write(recordRow(rec)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExportRecordsXLSX writes the same rows as ExportRecordsCSV into a
// spreadsheet, keeping numeric cells numeric.
func ExportRecordsXLSX(records []runner.OutcomeRecord, filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := make([]interface{}, len(recordHeader))
	for i, h := range recordHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		var output interface{}
		if rec.Result != nil {
			output = *rec.Result
		}
		row := []interface{}{
			rec.Input,
			output,
			rec.LatencyMs,
			rec.ErrorKind.Label(),
			rec.Success,
			rec.Cause,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(filename)
}

var burstHeader = []string{
	"Concurrency", "Success Rate (%)", "Avg Latency (ms)", "P50 (ms)", "P99 (ms)",
	"Max (ms)", "Successes", "Transport", "Incorrect", "Latency OOB", "Undefined",
	"Elapsed (ms)", "Throughput (req/s)",
}

// ExportBurstsCSV writes one row per concurrency level.
func ExportBurstsCSV(bursts []runner.BurstResult, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(burstHeader); err != nil {
		return err
	}
	for _, b := range bursts {
		row := []string{
			strconv.Itoa(b.Concurrency),
			fmt.Sprintf("%.2f", b.SuccessRate*100),
			fmt.Sprintf("%.2f", b.AvgLatencyMs),
			fmt.Sprintf("%.2f", b.P50LatencyMs),
			fmt.Sprintf("%.2f", b.P99LatencyMs),
			fmt.Sprintf("%.2f", b.MaxLatencyMs),
			strconv.Itoa(b.Successes),
		}
		for _, kind := range runner.ErrorKinds {
			row = append(row, strconv.Itoa(b.ErrorCounts[kind]))
		}
		row = append(row,
			strconv.FormatInt(b.Elapsed.Milliseconds(), 10),
			fmt.Sprintf("%.1f", b.Throughput),
		)
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ExportJSON writes v as indented JSON.
func ExportJSON(v interface{}, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
