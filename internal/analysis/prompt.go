package analysis

import (
	"fmt"
	"strings"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

const (
	// MaxPromptEntries caps how many entries are embedded in a prompt.
	MaxPromptEntries = 50
	// DefaultLanguage is the language the provider is asked to answer in.
	DefaultLanguage = "English"
)

const promptTemplate = `You are an experienced site reliability engineer reviewing logs pulled from a Loki instance.
Find recurring patterns, repeated errors and anomalies, then give concrete troubleshooting steps.

Tasks:
1. Summarize the overall health of the system.
2. List the recurring error patterns and how many times each occurs.
3. Recommend remediation steps, each with a priority.

Write every text field (summary, description, title, action) in %s.

Respond with one JSON object of exactly this shape and nothing else:
{
  "summary": "overview",
  "detectedErrors": [{"type": "ERROR_CATEGORY", "description": "what happens", "count": 1}],
  "recommendations": [{"title": "short title", "action": "what to do", "priority": "high|medium|low"}]
}

Logs:
%s`

// PromptBuilder renders log entries into the provider-agnostic prompt.
type PromptBuilder struct {
	Language   string
	MaxEntries int
}

// NewPromptBuilder returns a builder with default settings.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{Language: DefaultLanguage, MaxEntries: MaxPromptEntries}
}

// Build renders the prompt. Only the first MaxEntries entries are used, in the
// order given; callers wanting the most recent lines must pass them newest first.
func (b *PromptBuilder) Build(entries []models.LogEntry) string {
	limit := b.MaxEntries
	if limit <= 0 || limit > MaxPromptEntries {
		limit = MaxPromptEntries
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, FormatEntry(e))
	}

	lang := b.Language
	if strings.TrimSpace(lang) == "" {
		lang = DefaultLanguage
	}
	return fmt.Sprintf(promptTemplate, lang, strings.Join(lines, "\n"))
}

// BuildPrompt renders entries with the default builder.
func BuildPrompt(entries []models.LogEntry) string {
	return NewPromptBuilder().Build(entries)
}

// FormatEntry renders one entry as "[timestamp] [LEVEL] line".
func FormatEntry(e models.LogEntry) string {
	return fmt.Sprintf("[%s] [%s] %s", e.ISOTimestamp(), strings.ToUpper(string(e.Level)), e.Line)
}
