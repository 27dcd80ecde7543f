// Package providers assembles the analysis orchestrator from configuration.
package providers

import (
	"log/slog"

	"github.com/Amazomic/loki-analyzer/internal/analysis"
	"github.com/Amazomic/loki-analyzer/internal/analysis/chatcompletion"
	"github.com/Amazomic/loki-analyzer/internal/analysis/gemini"
	"github.com/Amazomic/loki-analyzer/internal/models"
	"github.com/Amazomic/loki-analyzer/pkg/config"
)

// NewRegistry registers Gemini, OpenAI and OpenRouter with the endpoints in cfg.
func NewRegistry(cfg config.AIConfig) *analysis.Registry {
	var geminiOpts []gemini.Option
	if cfg.GeminiBaseURL != "" {
		geminiOpts = append(geminiOpts, gemini.WithBaseURL(cfg.GeminiBaseURL))
	}

	return analysis.NewRegistry(
		gemini.New(geminiOpts...),
		chatcompletion.New(chatcompletion.OpenAI(cfg.OpenAIBaseURL)),
		chatcompletion.New(chatcompletion.OpenRouter(cfg.OpenRouterBaseURL, cfg.OpenRouterReferer, cfg.OpenRouterTitle)),
	)
}

// NewOrchestrator builds an orchestrator over NewRegistry. The configured
// Gemini key is the process-wide fallback; the orchestrator only applies it to
// providers that allow one.
func NewOrchestrator(cfg config.AIConfig, logger *slog.Logger) *analysis.Orchestrator {
	prompts := analysis.NewPromptBuilder()
	if cfg.Language != "" {
		prompts.Language = cfg.Language
	}

	return analysis.New(NewRegistry(cfg),
		analysis.WithPromptBuilder(prompts),
		analysis.WithDefaultKey(func(p models.Provider) string {
			if p == models.ProviderGemini {
				return cfg.GeminiAPIKey
			}
			return ""
		}),
		analysis.WithLogger(logger),
	)
}
