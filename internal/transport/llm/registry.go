// Package llm routes model invocations to provider backends keyed by name.
package llm

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/kailas-cloud/riskrag/internal/domain"
)

// Provider names.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Backend is a provider-specific invoker.
type Backend interface {
	domain.Invoker
	Provider() string
	Model() string
	Configured() bool
}

// ModelInfo describes one selectable model.
type ModelInfo struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Default   bool   `json:"default"`
}

// knownModels lists the models offered per provider in the catalogue.
var knownModels = map[string][]string{
	ProviderGroq:      {"llama-3.1-8b-instant", "llama-3.3-70b-versatile", "mixtral-8x7b-32768"},
	ProviderOpenAI:    {"gpt-4o-mini", "gpt-4o"},
	ProviderAnthropic: {"claude-3-5-sonnet-20241022", "claude-3-5-haiku-20241022"},
	ProviderMock:      {"mock-analyst"},
}

// Registry is a strategy map of backends with a default provider.
type Registry struct {
	backends        map[string]Backend
	defaultProvider string
}

// NewRegistry creates a registry. The default provider must be among the backends.
func NewRegistry(defaultProvider string, backends ...Backend) (*Registry, error) {
	r := &Registry{backends: make(map[string]Backend, len(backends)), defaultProvider: defaultProvider}
	for _, b := range backends {
		r.backends[b.Provider()] = b
	}
	if _, ok := r.backends[defaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q is not registered", defaultProvider)
	}
	return r, nil
}

// ParseModelID splits "provider:name". A bare id is treated as a provider name.
func ParseModelID(id string) (provider, name string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ""
	}
	if p, n, ok := strings.Cut(id, ":"); ok {
		return strings.ToLower(p), n
	}
	return strings.ToLower(id), ""
}

// Route resolves the backend for a request. An empty provider selects the default;
// a model written as "provider:name" carries its own provider.
func (r *Registry) Route(provider, model string) (domain.ModelRoute, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" && strings.Contains(model, ":") {
		provider, model = ParseModelID(model)
	}
	if provider == "" {
		provider = r.defaultProvider
	}

	b, ok := r.backends[provider]
	if !ok {
		return domain.ModelRoute{}, fmt.Errorf("unknown model provider %q: %w", provider, domain.ErrInvalidRequest)
	}
	if !b.Configured() {
		return domain.ModelRoute{}, fmt.Errorf("%s: %w", provider, domain.ErrModelUnavailable)
	}
	if model == "" {
		model = b.Model()
	}
	return domain.ModelRoute{Invoker: b, Provider: provider, Model: model}, nil
}

// DefaultProvider returns the configured default provider.
func (r *Registry) DefaultProvider() string { return r.defaultProvider }

// HealthCheck fails when the default backend has no credentials.
func (r *Registry) HealthCheck(context.Context) error {
	if !r.backends[r.defaultProvider].Configured() {
		return fmt.Errorf("%s: %w", r.defaultProvider, domain.ErrModelUnavailable)
	}
	return nil
}

// Models returns the catalogue sorted by provider then name.
func (r *Registry) Models() []ModelInfo {
	var out []ModelInfo
	for provider, b := range r.backends {
		names := append([]string{}, knownModels[provider]...)
		if !slices.Contains(names, b.Model()) {
			names = append(names, b.Model())
		}
		for _, name := range names {
			out = append(out, ModelInfo{
				ID:        provider + ":" + name,
				Provider:  provider,
				Name:      name,
				Available: b.Configured(),
				Default:   provider == r.defaultProvider && name == b.Model(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}
