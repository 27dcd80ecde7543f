package models

import "time"

// Report is a stored analysis run.
type Report struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	Query       string         `json:"query"`
	Provider    Provider       `json:"provider"`
	Model       string         `json:"model,omitempty"`
	EntryCount  int            `json:"entry_count"`
	LevelCounts map[Level]int  `json:"level_counts"`
	Result      AnalysisResult `json:"result"`
}

// ReportFilter narrows a report listing.
type ReportFilter struct {
	// ErrorType keeps only reports whose result detected this error type.
	ErrorType string
	Limit     int
}
