// Package chatcompletion implements the analysis adapter for providers that
// speak the OpenAI chat-completions protocol. Providers differ only in base URL,
// default model and extra headers.
package chatcompletion

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Amazomic/loki-analyzer/internal/analysis"
	"github.com/Amazomic/loki-analyzer/internal/models"
)

const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	OpenAIDefaultModel     = "gpt-4o-mini"
	OpenRouterDefaultModel = "google/gemini-2.0-flash-lite:preview"

	// DefaultAppTitle is sent to OpenRouter for attribution.
	DefaultAppTitle = "Loki AI Analyzer"
)

// Endpoint describes one chat-completions provider.
type Endpoint struct {
	Provider     models.Provider
	Name         string
	BaseURL      string
	DefaultModel string
	// Headers are added to every request.
	Headers map[string]string
}

// OpenAI returns the OpenAI endpoint. An empty baseURL selects the public API.
func OpenAI(baseURL string) Endpoint {
	if baseURL == "" {
		baseURL = OpenAIBaseURL
	}
	return Endpoint{
		Provider:     models.ProviderOpenAI,
		Name:         "OpenAI",
		BaseURL:      baseURL,
		DefaultModel: OpenAIDefaultModel,
	}
}

// OpenRouter returns the OpenRouter endpoint with its attribution headers.
func OpenRouter(baseURL, referer, title string) Endpoint {
	if baseURL == "" {
		baseURL = OpenRouterBaseURL
	}
	if title == "" {
		title = DefaultAppTitle
	}
	headers := map[string]string{"X-Title": title}
	if referer != "" {
		headers["HTTP-Referer"] = referer
	}
	return Endpoint{
		Provider:     models.ProviderOpenRouter,
		Name:         "OpenRouter",
		BaseURL:      baseURL,
		DefaultModel: OpenRouterDefaultModel,
		Headers:      headers,
	}
}

// Adapter implements analysis.Adapter for one Endpoint.
type Adapter struct {
	endpoint  Endpoint
	transport http.RoundTripper
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithTransport sets the base HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(a *Adapter) {
		if rt != nil {
			a.transport = rt
		}
	}
}

// New creates an adapter for ep.
func New(ep Endpoint, opts ...Option) *Adapter {
	a := &Adapter{
		endpoint:  ep,
		transport: http.DefaultTransport,
	}
	a.endpoint.BaseURL = strings.TrimRight(ep.BaseURL, "/")
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ analysis.Adapter = (*Adapter)(nil)

// Info describes the provider.
func (a *Adapter) Info() models.ProviderInfo {
	return models.ProviderInfo{
		ID:           a.endpoint.Provider,
		Name:         a.endpoint.Name,
		DefaultModel: a.endpoint.DefaultModel,
	}
}

func (a *Adapter) client(apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = a.endpoint.BaseURL
	cfg.HTTPClient = &http.Client{
		Transport: &headerTransport{base: a.transport, headers: a.endpoint.Headers},
	}
	return openai.NewClientWithConfig(cfg)
}

// SendAnalysisRequest posts one user message asking for a JSON object and
// returns the content of the first choice. No field presence is guaranteed.
func (a *Adapter) SendAnalysisRequest(ctx context.Context, prompt string, cfg models.ProviderConfig) (string, error) {
	resp, err := a.client(cfg.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", a.endpoint.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels lists the models exposed by the endpoint.
func (a *Adapter) ListModels(ctx context.Context, apiKey string) ([]models.ModelInfo, error) {
	list, err := a.client(apiKey).ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s list models: %w", a.endpoint.Name, err)
	}
	out := make([]models.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, models.ModelInfo{ID: m.ID, Name: m.ID})
	}
	return out, nil
}

// headerTransport adds fixed headers to each request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(req)
}
