package classify

import (
	"testing"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		wantLevel   models.Level
		wantDisplay string
	}{
		{"plain error", "ERROR: disk full", models.LevelError, "ERROR: disk full"},
		{"error beats info", "info: request failed with Exception", models.LevelError, "info: request failed with Exception"},
		{"plain warn", "WARNING low memory", models.LevelWarn, "WARNING low memory"},
		{"plain debug", "debug cache hit", models.LevelDebug, "debug cache hit"},
		{"plain info", "INFO started", models.LevelInfo, "INFO started"},
		{"nothing matches", "GET /healthz 200", models.LevelUnknown, "GET /healthz 200"},
		{"short err token", "conn err: reset", models.LevelError, "conn err: reset"},
		{
			"structured level and message",
			`{"level":"warning","msg":"slow query"}`,
			models.LevelWarn, "slow query",
		},
		{
			"structured level wins over text",
			`{"level":"info","message":"retrying after error"}`,
			models.LevelInfo, "retrying after error",
		},
		{
			"structured lvl key",
			`{"lvl":"eror","msg":"x"}`,
			models.LevelUnknown, "x",
		},
		{
			"structured panic",
			`{"severity":"PANIC","message":"boom"}`,
			models.LevelError, "boom",
		},
		{
			"structured without level falls back to raw text",
			`{"msg":"upstream fatal"}`,
			models.LevelError, "upstream fatal",
		},
		{
			"structured without message keeps raw line",
			`{"level":"debug","k":"v"}`,
			models.LevelDebug, `{"level":"debug","k":"v"}`,
		},
		{
			"leading whitespace before object",
			`   {"level":"error","msg":"oops"}`,
			models.LevelError, "oops",
		},
		{
			"malformed JSON falls back to text",
			`{"level":"info", broken error`,
			models.LevelError, `{"level":"info", broken error`,
		},
		{
			"non-string level ignored",
			`{"level":3,"msg":"warn threshold"}`,
			models.LevelWarn, "warn threshold",
		},
		{
			"empty message ignored",
			`{"level":"info","message":""}`,
			models.LevelInfo, `{"level":"info","message":""}`,
		},
		{
			"array is not structured",
			`[{"level":"error"}]`,
			models.LevelError, `[{"level":"error"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotLevel, gotDisplay := Classify(tt.line)
			if gotLevel != tt.wantLevel {
				t.Errorf("level = %q, want %q", gotLevel, tt.wantLevel)
			}
			if gotDisplay != tt.wantDisplay {
				t.Errorf("display = %q, want %q", gotDisplay, tt.wantDisplay)
			}
		})
	}
}

func TestStructuredRejectsNonObjects(t *testing.T) {
	for _, line := range []string{"", "plain", "{", "{not json}", `"{}"`, "[1,2]"} {
		if _, ok := Structured(line); ok {
			t.Errorf("Structured(%q) reported a structured line", line)
		}
	}
}

func TestStructuredErrVocabularyDiffersFromText(t *testing.T) {
	// "exception" is a text keyword only.
	f, ok := Structured(`{"level":"exception"}`)
	if !ok {
		t.Fatal("expected a structured line")
	}
	if f.Level != models.LevelUnknown {
		t.Errorf("structured level = %q, want unknown", f.Level)
	}
	if got := Text("exception"); got != models.LevelError {
		t.Errorf("text level = %q, want error", got)
	}
}

func TestCountLevels(t *testing.T) {
	entries := []models.LogEntry{
		{Level: models.LevelError},
		{Level: models.LevelError},
		{Level: models.LevelInfo},
	}
	counts := CountLevels(entries)
	if counts[models.LevelError] != 2 || counts[models.LevelInfo] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
	for _, lvl := range models.Levels() {
		if _, ok := counts[lvl]; !ok {
			t.Errorf("missing level %q in counts", lvl)
		}
	}
}
