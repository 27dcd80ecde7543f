package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level is the severity assigned to a log line by the classifier.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
	LevelDebug   Level = "debug"
	LevelUnknown Level = "unknown"
)

// Levels returns every level in display order.
func Levels() []Level {
	return []Level{LevelError, LevelWarn, LevelInfo, LevelDebug, LevelUnknown}
}

// IsValid reports whether l is one of the known levels.
func (l Level) IsValid() bool {
	switch l {
	case LevelInfo, LevelWarn, LevelError, LevelDebug, LevelUnknown:
		return true
	}
	return false
}

// TimestampLayout is the ISO-8601 form used for log timestamps (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// LogEntry represents one log line as classified by the fetcher.
// Entries are built once per fetch and never mutated afterwards.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Line      string    `json:"line"`
	Level     Level     `json:"level"`
}

// NewLogEntry builds an entry, normalizing the timestamp to UTC milliseconds
// and defaulting an empty or unrecognized level to LevelUnknown.
func NewLogEntry(ts time.Time, line string, level Level) LogEntry {
	if !level.IsValid() {
		level = LevelUnknown
	}
	return LogEntry{
		Timestamp: ts.UTC().Truncate(time.Millisecond),
		Line:      line,
		Level:     level,
	}
}

// ISOTimestamp returns the entry timestamp formatted with TimestampLayout.
func (e LogEntry) ISOTimestamp() string {
	return e.Timestamp.UTC().Format(TimestampLayout)
}

type logEntryJSON struct {
	Timestamp string `json:"timestamp"`
	Line      string `json:"line"`
	Level     Level  `json:"level"`
}

// MarshalJSON encodes the timestamp with TimestampLayout.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(logEntryJSON{
		Timestamp: e.ISOTimestamp(),
		Line:      e.Line,
		Level:     e.Level,
	})
}

// UnmarshalJSON accepts any RFC 3339 timestamp.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var raw logEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
	if err != nil {
		return fmt.Errorf("parsing log timestamp %q: %w", raw.Timestamp, err)
	}
	*e = NewLogEntry(ts, raw.Line, raw.Level)
	return nil
}

// QueryConfig holds the connection and query parameters for one fetch.
type QueryConfig struct {
	// URL is the base URL of the log backend, e.g. http://loki:3100.
	URL string `json:"url"`
	// Token is either a raw bearer token or a complete Authorization header value.
	Token string `json:"token,omitempty"`
	// Query is the LogQL filter expression, passed through untouched.
	Query string `json:"query"`
	Limit int    `json:"limit"`
	// Range is an optional lookback window such as "6h" or "7d".
	Range string `json:"range,omitempty"`
}
