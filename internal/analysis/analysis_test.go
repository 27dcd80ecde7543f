package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

// fakeAdapter is an in-memory Adapter used across the package tests.
type fakeAdapter struct {
	info      models.ProviderInfo
	reply     string
	err       error
	models    []models.ModelInfo
	modelsErr error

	calls      int
	lastPrompt string
	lastConfig models.ProviderConfig
}

func (f *fakeAdapter) Info() models.ProviderInfo { return f.info }

func (f *fakeAdapter) SendAnalysisRequest(ctx context.Context, prompt string, cfg models.ProviderConfig) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastConfig = cfg
	return f.reply, f.err
}

func (f *fakeAdapter) ListModels(ctx context.Context, apiKey string) ([]models.ModelInfo, error) {
	return f.models, f.modelsErr
}

func newFake(id models.Provider, fallback bool) *fakeAdapter {
	return &fakeAdapter{
		info: models.ProviderInfo{
			ID:                 id,
			Name:               string(id),
			DefaultModel:       string(id) + "-default",
			DefaultKeyFallback: fallback,
		},
	}
}

const validReply = `{
	"summary": "Database connections are failing.",
	"detectedErrors": [{"type": "DB_CONNECTION", "description": "connection refused", "count": 3}],
	"recommendations": [{"title": "Check database", "action": "Restart postgres", "priority": "high"}]
}`

func sampleEntries(n int) []models.LogEntry {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := make([]models.LogEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, models.NewLogEntry(base.Add(-time.Duration(i)*time.Second), fmt.Sprintf("line-%03d", i), models.LevelError))
	}
	return entries
}

func TestBuildPromptCapsAndFormats(t *testing.T) {
	entries := sampleEntries(75)
	prompt := BuildPrompt(entries)

	if !strings.Contains(prompt, "[2024-05-01T12:00:00.000Z] [ERROR] line-000") {
		t.Error("prompt is missing the formatted first entry")
	}
	if !strings.Contains(prompt, "line-049") {
		t.Error("prompt is missing the 50th entry")
	}
	if strings.Contains(prompt, "line-050") {
		t.Error("prompt should be capped at 50 entries")
	}
	if strings.Index(prompt, "line-000") > strings.Index(prompt, "line-001") {
		t.Error("prompt should keep caller order")
	}
	for _, field := range []string{"summary", "detectedErrors", "recommendations", "priority"} {
		if !strings.Contains(prompt, field) {
			t.Errorf("prompt should request field %q", field)
		}
	}
	if !strings.Contains(prompt, DefaultLanguage) {
		t.Error("prompt should name the response language")
	}
}

func TestPromptBuilderLanguageAndLimit(t *testing.T) {
	b := &PromptBuilder{Language: "Russian", MaxEntries: 2}
	prompt := b.Build(sampleEntries(5))
	if !strings.Contains(prompt, "in Russian") {
		t.Error("expected the configured language")
	}
	if strings.Contains(prompt, "line-002") {
		t.Error("expected the configured limit")
	}

	// Limits above the hard cap are clamped.
	b = &PromptBuilder{MaxEntries: 500}
	if strings.Contains(b.Build(sampleEntries(60)), "line-055") {
		t.Error("limit should be clamped to MaxPromptEntries")
	}
}

func TestFormatEntry(t *testing.T) {
	e := models.NewLogEntry(time.Unix(1700000000, 0), "disk full", models.LevelWarn)
	if got := FormatEntry(e); got != "[2023-11-14T22:13:20.000Z] [WARN] disk full" {
		t.Errorf("FormatEntry = %q", got)
	}
}

func TestParseResult(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r, err := ParseResult(validReply)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Summary == "" || len(r.DetectedErrors) != 1 || len(r.Recommendations) != 1 {
			t.Fatalf("unexpected result: %+v", r)
		}
		if r.DetectedErrors[0].Count != 3 || r.Recommendations[0].Priority != models.PriorityHigh {
			t.Errorf("unexpected values: %+v", r)
		}
	})

	t.Run("code fence and priority case", func(t *testing.T) {
		reply := "```json\n" + strings.Replace(validReply, `"high"`, `" High "`, 1) + "\n```"
		r, err := ParseResult(reply)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Recommendations[0].Priority != models.PriorityHigh {
			t.Errorf("priority = %q", r.Recommendations[0].Priority)
		}
	})

	t.Run("integral float count", func(t *testing.T) {
		r, err := ParseResult(strings.Replace(validReply, `"count": 3`, `"count": 3.0`, 1))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.DetectedErrors[0].Count != 3 {
			t.Errorf("count = %d", r.DetectedErrors[0].Count)
		}
	})

	t.Run("empty lists are valid", func(t *testing.T) {
		if _, err := ParseResult(`{"summary":"ok","detectedErrors":[],"recommendations":[]}`); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	failures := []struct {
		name string
		text string
		kind Kind
	}{
		{"empty", "", KindEmpty},
		{"whitespace", "  \n ", KindEmpty},
		{"not json", "not json", KindMalformed},
		{"array", `[1,2]`, KindMalformed},
		{"wrong summary type", `{"summary":1,"detectedErrors":[],"recommendations":[]}`, KindMalformed},
		{"string count", strings.Replace(validReply, `"count": 3`, `"count": "3"`, 1), KindMalformed},
		{"missing summary", `{"detectedErrors":[],"recommendations":[]}`, KindShape},
		{"missing detectedErrors", `{"summary":"x","recommendations":[]}`, KindShape},
		{"null recommendations", `{"summary":"x","detectedErrors":[],"recommendations":null}`, KindShape},
		{"empty summary", `{"summary":"","detectedErrors":[],"recommendations":[]}`, KindShape},
		{"fractional count", strings.Replace(validReply, `"count": 3`, `"count": 2.5`, 1), KindShape},
		{"zero count", strings.Replace(validReply, `"count": 3`, `"count": 0`, 1), KindShape},
		{"missing count", strings.Replace(validReply, `, "count": 3`, ``, 1), KindShape},
		{"empty type", strings.Replace(validReply, `"DB_CONNECTION"`, `""`, 1), KindShape},
		{"bad priority", strings.Replace(validReply, `"high"`, `"urgent"`, 1), KindShape},
		{"null element", `{"summary":"x","detectedErrors":[null],"recommendations":[]}`, KindShape},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult(tt.text)
			var aerr *AnalysisError
			if !errors.As(err, &aerr) {
				t.Fatalf("expected *AnalysisError, got %T: %v", err, err)
			}
			if aerr.Kind != tt.kind {
				t.Errorf("kind = %q, want %q (%v)", aerr.Kind, tt.kind, err)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(newFake("b", false), newFake("a", true))

	if _, err := r.Get("a"); err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	infos := r.Providers()
	if len(infos) != 2 || infos[0].ID != "a" || infos[1].ID != "b" {
		t.Errorf("Providers() = %+v", infos)
	}

	replacement := newFake("a", false)
	r.Register(replacement)
	got, _ := r.Get("a")
	if got != replacement {
		t.Error("Register should replace an existing adapter")
	}
}

func TestAnalyze(t *testing.T) {
	t.Run("dispatches with resolved config", func(t *testing.T) {
		fake := newFake("openai", false)
		fake.reply = validReply
		o := New(NewRegistry(fake))

		result, err := o.Analyze(context.Background(), sampleEntries(3), models.ProviderConfig{Provider: "openai", APIKey: " k "})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.DetectedErrors[0].Type != "DB_CONNECTION" {
			t.Errorf("unexpected result: %+v", result)
		}
		if fake.lastConfig.APIKey != "k" || fake.lastConfig.Model != "openai-default" {
			t.Errorf("unexpected resolved config: %+v", fake.lastConfig)
		}
		if !strings.Contains(fake.lastPrompt, "line-002") {
			t.Error("prompt should contain the entries")
		}
	})

	t.Run("explicit model wins", func(t *testing.T) {
		fake := newFake("openai", false)
		fake.reply = validReply
		o := New(NewRegistry(fake))
		if _, err := o.Analyze(context.Background(), sampleEntries(1), models.ProviderConfig{Provider: "openai", APIKey: "k", Model: "gpt-x"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fake.lastConfig.Model != "gpt-x" {
			t.Errorf("model = %q", fake.lastConfig.Model)
		}
	})

	t.Run("empty entries short-circuit", func(t *testing.T) {
		fake := newFake("openai", false)
		o := New(NewRegistry(fake))
		result, err := o.Analyze(context.Background(), nil, models.ProviderConfig{Provider: "openai"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fake.calls != 0 {
			t.Error("provider should not be called")
		}
		if err := ValidateResult(result); err != nil {
			t.Errorf("empty result should be valid: %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		o := New(NewRegistry())
		_, err := o.Analyze(context.Background(), sampleEntries(1), models.ProviderConfig{Provider: "nope", APIKey: "k"})
		if !errors.Is(err, ErrUnknownProvider) {
			t.Fatalf("expected ErrUnknownProvider, got %v", err)
		}
		var aerr *AnalysisError
		if !errors.As(err, &aerr) || aerr.Kind != KindConfig {
			t.Errorf("expected config AnalysisError, got %v", err)
		}
	})

	t.Run("default key only for fallback providers", func(t *testing.T) {
		gem := newFake("gemini", true)
		gem.reply = validReply
		oai := newFake("openai", false)
		oai.reply = validReply
		lookups := 0
		o := New(NewRegistry(gem, oai), WithDefaultKey(func(p models.Provider) string {
			lookups++
			return "process-key"
		}))

		if _, err := o.Analyze(context.Background(), sampleEntries(1), models.ProviderConfig{Provider: "gemini"}); err != nil {
			t.Fatalf("gemini: unexpected error: %v", err)
		}
		if gem.lastConfig.APIKey != "process-key" {
			t.Errorf("gemini key = %q", gem.lastConfig.APIKey)
		}

		_, err := o.Analyze(context.Background(), sampleEntries(1), models.ProviderConfig{Provider: "openai"})
		var aerr *AnalysisError
		if !errors.As(err, &aerr) || aerr.Kind != KindConfig {
			t.Fatalf("openai without key should fail with config error, got %v", err)
		}
		if oai.calls != 0 {
			t.Error("openai should not be called without a key")
		}
		if lookups != 1 {
			t.Errorf("default key consulted %d times, want 1", lookups)
		}
	})

	t.Run("provider failure", func(t *testing.T) {
		fake := newFake("openai", false)
		fake.err = errors.New("401 unauthorized")
		o := New(NewRegistry(fake))
		_, err := o.Analyze(context.Background(), sampleEntries(1), models.ProviderConfig{Provider: "openai", APIKey: "k"})
		var aerr *AnalysisError
		if !errors.As(err, &aerr) || aerr.Kind != KindRequest || aerr.Provider != "openai" {
			t.Fatalf("expected request AnalysisError, got %v", err)
		}
		if !strings.Contains(err.Error(), "401 unauthorized") {
			t.Errorf("error should carry the provider message: %v", err)
		}
	})

	t.Run("malformed reply", func(t *testing.T) {
		fake := newFake("openai", false)
		fake.reply = "not json"
		o := New(NewRegistry(fake))
		_, err := o.Analyze(context.Background(), sampleEntries(1), models.ProviderConfig{Provider: "openai", APIKey: "k"})
		var aerr *AnalysisError
		if !errors.As(err, &aerr) || aerr.Kind != KindMalformed || aerr.Provider != "openai" {
			t.Fatalf("expected malformed AnalysisError, got %v", err)
		}
	})
}

func TestListAvailableModels(t *testing.T) {
	fake := newFake("openai", false)
	fake.models = []models.ModelInfo{{ID: "m1", Name: "Model 1"}}
	failing := newFake("broken", false)
	failing.modelsErr = errors.New("network down")
	o := New(NewRegistry(fake, failing))
	ctx := context.Background()

	if got := o.ListAvailableModels(ctx, "openai", "k"); len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("ListAvailableModels = %+v", got)
	}

	for name, got := range map[string][]models.ModelInfo{
		"missing key":      o.ListAvailableModels(ctx, "openai", ""),
		"unknown provider": o.ListAvailableModels(ctx, "nope", "k"),
		"adapter failure":  o.ListAvailableModels(ctx, "broken", "k"),
	} {
		if got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty non-nil list, got %+v", name, got)
		}
	}
}
