package storage

import (
	"time"

	"github.com/google/uuid"

	"oraclebench/internal/report"
)

// HistoryItem is one finished run. Per-request records are not kept; the
// exports hold those.
type HistoryItem struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Summary   report.Summary `json:"summary"`
}

// NewHistoryItem stamps s with a time-ordered ID, so store keys sort by age.
func NewHistoryItem(s report.Summary) (HistoryItem, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return HistoryItem{}, err
	}
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return HistoryItem{ID: id.String(), Timestamp: ts, Summary: s}, nil
}
