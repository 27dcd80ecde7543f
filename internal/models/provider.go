package models

import "strings"

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderGemini     Provider = "gemini"
	ProviderOpenAI     Provider = "openai"
	ProviderOpenRouter Provider = "openrouter"
)

// ParseProvider normalizes a provider identifier.
func ParseProvider(s string) Provider {
	return Provider(strings.ToLower(strings.TrimSpace(s)))
}

// ProviderConfig selects the provider for one analysis call.
// The endpoint is never supplied here; it is looked up by provider.
type ProviderConfig struct {
	Provider Provider `json:"provider"`
	APIKey   string   `json:"api_key,omitempty"`
	Model    string   `json:"model,omitempty"`
}

// ProviderInfo describes a registered provider adapter.
type ProviderInfo struct {
	ID           Provider `json:"id"`
	Name         string   `json:"name"`
	DefaultModel string   `json:"default_model"`
	// SchemaNative is true when the provider enforces the result schema itself.
	SchemaNative bool `json:"schema_native"`
	// DefaultKeyFallback is true when a process-wide key may stand in for a missing per-call key.
	DefaultKeyFallback bool `json:"default_key_fallback"`
}

// ModelInfo is one selectable model.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
