// Package gemini implements the schema-native analysis adapter on top of the
// Google GenAI SDK. The response schema is enforced by the provider.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/Amazomic/loki-analyzer/internal/analysis"
	"github.com/Amazomic/loki-analyzer/internal/models"
)

// DefaultModel is used when the caller names no model.
const DefaultModel = "gemini-3-flash-preview"

// Adapter implements analysis.Adapter for Gemini.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(a *Adapter) {
		a.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the HTTP client used by the SDK.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Adapter) {
		a.httpClient = hc
	}
}

// New creates a Gemini adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ analysis.Adapter = (*Adapter)(nil)

// Info describes the provider.
func (a *Adapter) Info() models.ProviderInfo {
	return models.ProviderInfo{
		ID:                 models.ProviderGemini,
		Name:               "Google Gemini",
		DefaultModel:       DefaultModel,
		SchemaNative:       true,
		DefaultKeyFallback: true,
	}
}

func (a *Adapter) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: a.httpClient,
	}
	if a.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: a.baseURL + "/"}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return client, nil
}

// SendAnalysisRequest asks for JSON constrained by ResultSchema and returns the text.
func (a *Adapter) SendAnalysisRequest(ctx context.Context, prompt string, cfg models.ProviderConfig) (string, error) {
	client, err := a.client(ctx, cfg.APIKey)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResultSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return resp.Text(), nil
}

// ListModels lists the models visible to the key.
func (a *Adapter) ListModels(ctx context.Context, apiKey string) ([]models.ModelInfo, error) {
	client, err := a.client(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	page, err := client.Models.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	list := make([]models.ModelInfo, 0, len(page.Items))
	for _, m := range page.Items {
		if m == nil {
			continue
		}
		id := strings.TrimPrefix(m.Name, "models/")
		name := m.DisplayName
		if name == "" {
			name = id
		}
		list = append(list, models.ModelInfo{ID: id, Name: name})
	}
	return list, nil
}

// ResultSchema describes the canonical AnalysisResult shape to the provider.
func ResultSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary": str("Overall assessment of system health."),
			"detectedErrors": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"type":        str("Error category, e.g. DB_CONNECTION_ERROR."),
						"description": str("Short description of the problem."),
						"count":       {Type: genai.TypeInteger, Description: "Number of occurrences."},
					},
					Required: []string{"type", "description", "count"},
				},
			},
			"recommendations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":  str("Short name of the recommendation."),
						"action": str("Concrete action to take."),
						"priority": {
							Type: genai.TypeString,
							Enum: []string{string(models.PriorityLow), string(models.PriorityMedium), string(models.PriorityHigh)},
						},
					},
					Required: []string{"title", "action", "priority"},
				},
			},
		},
		Required: []string{"summary", "detectedErrors", "recommendations"},
	}
}
