package cascade

import (
	"context"
	"fmt"
	"strings"
)

// Request carries one completion call to an AI provider.
type Request struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is a single AI backend capable of chat completions.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderError reports a failed provider call. Retryable marks failures
// worth repeating on the same model (rate limits, 5xx, transport);
// non-retryable failures (auth, malformed request) skip straight to the
// next model in the cascade.
type ProviderError struct {
	Provider   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Registry maps provider names to their implementations. Model
// identifiers of the form "<provider>/<model>" route to the registered
// provider of that name; identifiers whose first segment is not a
// registered provider go to the default provider unchanged, which keeps
// OpenRouter ids like "mistralai/mistral-small-3.2-24b-instruct:free"
// working without configuration.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry builds an empty registry with a default provider name.
func NewRegistry(defaultName string) *Registry {
	return &Registry{providers: map[string]Provider{}, defaultName: defaultName}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(name string, provider Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[name] = provider
}

// Resolve returns the provider for a model identifier plus the model
// name the provider should be called with.
func (r *Registry) Resolve(model string) (Provider, string, error) {
	if name, rest, ok := strings.Cut(model, "/"); ok {
		if provider, registered := r.providers[name]; registered {
			return provider, rest, nil
		}
	}

	if provider, ok := r.providers[r.defaultName]; ok {
		return provider, model, nil
	}
	return nil, "", fmt.Errorf("no provider registered for model %s", model)
}
