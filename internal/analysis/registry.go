package analysis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Amazomic/loki-analyzer/internal/models"
)

// Adapter sends a prompt to one LLM provider. Adding a provider means adding
// an Adapter and registering it; the orchestrator holds no per-provider logic.
type Adapter interface {
	// Info describes the provider this adapter serves.
	Info() models.ProviderInfo
	// SendAnalysisRequest sends the prompt asking for JSON output and returns
	// the raw text payload. cfg carries a resolved key and model.
	SendAnalysisRequest(ctx context.Context, prompt string, cfg models.ProviderConfig) (string, error)
	// ListModels returns the models selectable with the given key.
	ListModels(ctx context.Context, apiKey string) ([]models.ModelInfo, error)
}

// Registry maps provider identifiers to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.Provider]Adapter
}

// NewRegistry creates a registry holding the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Provider]Adapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter under its provider identifier, replacing any previous one.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Info().ID] = a
}

// Get returns the adapter for p.
func (r *Registry) Get(p models.Provider) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, p)
	}
	return a, nil
}

// Providers describes every registered adapter, sorted by identifier.
func (r *Registry) Providers() []models.ProviderInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]models.ProviderInfo, 0, len(r.adapters))
	for _, a := range r.adapters {
		infos = append(infos, a.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
