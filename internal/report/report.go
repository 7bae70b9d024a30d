package report

import (
	"time"

	"oraclebench/internal/runner"
)

// Summary is the aggregate written next to the detailed exports.
type Summary struct {
	Mode        string                   `json:"mode"`
	Timestamp   time.Time                `json:"timestamp"`
	Config      runner.Config            `json:"config"`
	SuccessRate float64                  `json:"success_rate"`
	Requests    int                      `json:"requests"`
	Successes   int                      `json:"successes"`
	ErrorCounts map[runner.ErrorKind]int `json:"error_counts,omitempty"`
	Latency     *LatencySummary          `json:"latency,omitempty"`
	Bursts      []runner.BurstResult     `json:"bursts,omitempty"`
}

type LatencySummary struct {
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P99Ms  float64 `json:"p99_ms"`
	MaxMs  float64 `json:"max_ms"`
}

func FunctionalSummary(cfg runner.Config, r runner.FunctionalReport) Summary {
	return Summary{
		Mode:        "functional",
		Timestamp:   time.Now(),
		Config:      cfg,
		SuccessRate: r.SuccessRate,
		Requests:    len(r.Records),
		Successes:   r.Successes,
		ErrorCounts: r.ErrorCounts,
		Latency: &LatencySummary{
			MeanMs: r.MeanLatencyMs,
			P50Ms:  r.P50LatencyMs,
			P90Ms:  r.P90LatencyMs,
			P99Ms:  r.P99LatencyMs,
			MaxMs:  r.MaxLatencyMs,
		},
	}
}

// LoadSummary folds every burst into one overall success rate.
func LoadSummary(cfg runner.Config, bursts []runner.BurstResult) Summary {
	s := Summary{
		Mode:      "load",
		Timestamp: time.Now(),
		Config:    cfg,
		Bursts:    bursts,
	}
	for _, b := range bursts {
		s.Requests += b.Concurrency
		s.Successes += b.Successes
		for k, v := range b.ErrorCounts {
			if s.ErrorCounts == nil {
				s.ErrorCounts = make(map[runner.ErrorKind]int)
			}
			s.ErrorCounts[k] += v
		}
	}
	if s.Requests > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Requests)
	}
	return s
}

// WriteFunctional writes <prefix>.csv, <prefix>.xlsx, <prefix>.json and
// <prefix>_summary.json. It returns the files written.
func WriteFunctional(prefix string, cfg runner.Config, r runner.FunctionalReport) ([]string, error) {
	files := []string{prefix + ".csv", prefix + ".xlsx", prefix + ".json", prefix + "_summary.json"}
	if err := ExportRecordsCSV(r.Records, files[0]); err != nil {
		return nil, err
	}
	if err := ExportRecordsXLSX(r.Records, files[1]); err != nil {
		return nil, err
	}
	if err := ExportJSON(r.Records, files[2]); err != nil {
		return nil, err
	}
	if err := ExportJSON(FunctionalSummary(cfg, r), files[3]); err != nil {
		return nil, err
	}
	return files, nil
}

// WriteLoad writes <prefix>.csv and <prefix>_summary.json.
func WriteLoad(prefix string, cfg runner.Config, bursts []runner.BurstResult) ([]string, error) {
	files := []string{prefix + ".csv", prefix + "_summary.json"}
	if err := ExportBurstsCSV(bursts, files[0]); err != nil {
		return nil, err
	}
	if err := ExportJSON(LoadSummary(cfg, bursts), files[1]); err != nil {
		return nil, err
	}
	return files, nil
}
