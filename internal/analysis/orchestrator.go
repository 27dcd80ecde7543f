// Package analysis turns classified log entries into a provider-independent
// AnalysisResult. Provider differences live behind the Adapter interface.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

// KeySource returns the process-wide default API key for a provider. It is
// consulted at call time, so configuration changes apply to the next call.
type KeySource func(p models.Provider) string

// Orchestrator builds prompts, dispatches them to the registered adapter and
// validates the reply. It holds no mutable state and is safe for concurrent use.
type Orchestrator struct {
	registry   *Registry
	prompts    *PromptBuilder
	defaultKey KeySource
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDefaultKey sets the source of fallback API keys.
func WithDefaultKey(src KeySource) Option {
	return func(o *Orchestrator) {
		o.defaultKey = src
	}
}

// WithPromptBuilder replaces the default prompt builder.
func WithPromptBuilder(b *PromptBuilder) Option {
	return func(o *Orchestrator) {
		if b != nil {
			o.prompts = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an Orchestrator over the given registry.
func New(registry *Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:   registry,
		prompts:    NewPromptBuilder(),
		defaultKey: func(models.Provider) string { return "" },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Providers describes the registered providers.
func (o *Orchestrator) Providers() []models.ProviderInfo {
	return o.registry.Providers()
}

// BuildPrompt renders entries with the orchestrator's prompt settings.
func (o *Orchestrator) BuildPrompt(entries []models.LogEntry) string {
	return o.prompts.Build(entries)
}

// Resolve fills in the API key and model for cfg. A missing key falls back to
// the default key source only for providers that allow it; a missing model
// becomes the provider default.
func (o *Orchestrator) Resolve(cfg models.ProviderConfig) (models.ProviderConfig, Adapter, error) {
	adapter, err := o.registry.Get(cfg.Provider)
	if err != nil {
		return cfg, nil, &AnalysisError{Provider: cfg.Provider, Kind: KindConfig, Err: err}
	}
	info := adapter.Info()

	resolved := models.ProviderConfig{
		Provider: info.ID,
		APIKey:   strings.TrimSpace(cfg.APIKey),
		Model:    strings.TrimSpace(cfg.Model),
	}
	if resolved.APIKey == "" && info.DefaultKeyFallback {
		resolved.APIKey = o.defaultKey(info.ID)
	}
	if resolved.APIKey == "" {
		return resolved, nil, &AnalysisError{Provider: info.ID, Kind: KindConfig, Message: "an API key is required"}
	}
	if resolved.Model == "" {
		resolved.Model = info.DefaultModel
	}
	return resolved, adapter, nil
}

// Analyze sends the entries to the selected provider and returns a validated
// result. An empty entry set is answered locally without calling a provider.
// Analyze has no built-in timeout or retry; bound it through ctx.
func (o *Orchestrator) Analyze(ctx context.Context, entries []models.LogEntry, cfg models.ProviderConfig) (models.AnalysisResult, error) {
	if len(entries) == 0 {
		return EmptyResult(), nil
	}

	resolved, adapter, err := o.Resolve(cfg)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	o.logger.Info("dispatching analysis",
		"provider", resolved.Provider,
		"model", resolved.Model,
		"entries", len(entries),
	)

	text, err := adapter.SendAnalysisRequest(ctx, o.prompts.Build(entries), resolved)
	if err != nil {
		var aerr *AnalysisError
		if errors.As(err, &aerr) {
			if aerr.Provider == "" {
				aerr.Provider = resolved.Provider
			}
			return models.AnalysisResult{}, aerr
		}
		o.logger.Warn("provider request failed", "provider", resolved.Provider, "error", err)
		return models.AnalysisResult{}, &AnalysisError{Provider: resolved.Provider, Kind: KindRequest, Err: err}
	}

	result, err := ParseResult(text)
	if err != nil {
		var aerr *AnalysisError
		if errors.As(err, &aerr) {
			aerr.Provider = resolved.Provider
		}
		o.logger.Warn("provider returned unusable analysis", "provider", resolved.Provider, "error", err)
		return models.AnalysisResult{}, err
	}
	return result, nil
}

// ListAvailableModels returns the models selectable for a provider. It is
// advisory: any failure, a missing key or an unknown provider yields an empty list.
func (o *Orchestrator) ListAvailableModels(ctx context.Context, p models.Provider, apiKey string) []models.ModelInfo {
	resolved, adapter, err := o.Resolve(models.ProviderConfig{Provider: p, APIKey: apiKey})
	if err != nil {
		o.logger.Debug("skipping model listing", "provider", p, "error", err)
		return []models.ModelInfo{}
	}

	list, err := adapter.ListModels(ctx, resolved.APIKey)
	if err != nil {
		o.logger.Debug("model listing failed", "provider", p, "error", err)
		return []models.ModelInfo{}
	}
	if list == nil {
		return []models.ModelInfo{}
	}
	return list
}

// EmptyResult is the result for an empty entry set.
func EmptyResult() models.AnalysisResult {
	return models.AnalysisResult{
		Summary:         "No log entries were available to analyze.",
		DetectedErrors:  []models.DetectedError{},
		Recommendations: []models.Recommendation{},
	}
}
