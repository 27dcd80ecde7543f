package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func newProperties() *gopter.Properties {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(1234)
	return gopter.NewProperties(parameters)
}

// genTime generates instants with nanosecond precision in arbitrary zones.
func genTime() gopter.Gen {
	return gopter.CombineGens(
		gen.Int64Range(0, 4102444800),
		gen.Int64Range(0, 999999999),
		gen.IntRange(-12, 14),
	).Map(func(v []any) time.Time {
		zone := time.FixedZone("test", v[2].(int)*3600)
		return time.Unix(v[0].(int64), v[1].(int64)).In(zone)
	})
}

// Entries are normalized on construction: UTC, millisecond precision and a
// known level. The JSON form carries exactly that normalized value.
func TestPropertyLogEntryNormalization(t *testing.T) {
	properties := newProperties()

	properties.Property("constructor normalizes timestamp and level", prop.ForAll(
		func(ts time.Time, line, level string) bool {
			e := NewLogEntry(ts, line, Level(level))

			if e.Timestamp.Location() != time.UTC || e.Timestamp.Nanosecond()%int(time.Millisecond) != 0 {
				return false
			}
			if ts.Sub(e.Timestamp) < 0 || ts.Sub(e.Timestamp) >= time.Millisecond {
				return false
			}
			if !e.Level.IsValid() {
				return false
			}
			return Level(level).IsValid() == (e.Level == Level(level))
		},
		genTime(),
		gen.AnyString(),
		gen.OneConstOf("info", "warn", "error", "debug", "unknown", "", "FATAL", "trace"),
	))

	properties.Property("JSON keeps the normalized entry", prop.ForAll(
		func(ts time.Time, line string, level Level) bool {
			e := NewLogEntry(ts, line, level)

			data, err := json.Marshal(e)
			if err != nil {
				return false
			}
			var raw map[string]string
			if err := json.Unmarshal(data, &raw); err != nil {
				return false
			}
			if raw["timestamp"] != e.ISOTimestamp() {
				return false
			}

			var back LogEntry
			if err := json.Unmarshal(data, &back); err != nil {
				return false
			}
			return back.Timestamp.Equal(e.Timestamp) && back.Line == e.Line && back.Level == e.Level
		},
		genTime(),
		gen.AlphaString(),
		gen.OneConstOf(LevelInfo, LevelWarn, LevelError, LevelDebug, LevelUnknown),
	))

	properties.TestingRun(t)
}

func TestLogEntryUnmarshalRejectsBadTimestamp(t *testing.T) {
	var e LogEntry
	if err := json.Unmarshal([]byte(`{"timestamp":"yesterday","line":"x","level":"info"}`), &e); err == nil {
		t.Error("Unmarshal() accepted a non RFC 3339 timestamp")
	}
}

// ErrorTypes lists each detected type once, in order of first appearance.
func TestPropertyErrorTypes(t *testing.T) {
	properties := newProperties()

	properties.Property("distinct types in first-seen order", prop.ForAll(
		func(types []string) bool {
			r := AnalysisResult{}
			for _, typ := range types {
				r.DetectedErrors = append(r.DetectedErrors, DetectedError{Type: typ, Description: "d", Count: 1})
			}

			got := r.ErrorTypes()
			seen := map[string]bool{}
			var want []string
			for _, typ := range types {
				if !seen[typ] {
					seen[typ] = true
					want = append(want, typ)
				}
			}
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.OneConstOf("Timeout", "ConnectionError", "OOM", "AuthFailure")),
	))

	properties.TestingRun(t)
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want Provider
	}{
		{"gemini", ProviderGemini},
		{" OpenAI ", ProviderOpenAI},
		{"OPENROUTER", ProviderOpenRouter},
		{"", ""},
		{"anthropic", Provider("anthropic")},
	}
	for _, tt := range tests {
		if got := ParseProvider(tt.in); got != tt.want {
			t.Errorf("ParseProvider(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
