package backend

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a backend.
type Factory func() (Backend, error)

// Registry maps providers to backend factories.
type Registry struct {
	factories map[Provider]Factory
	mu        sync.RWMutex
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Provider]Factory),
	}
}

// Register adds a factory for provider.
func (r *Registry) Register(provider Provider, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[provider]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, provider)
	}

	r.factories[provider] = factory
	return nil
}

// New builds the backend registered for provider.
func (r *Registry) New(provider Provider) (Backend, error) {
	r.mu.RLock()
	factory, ok := r.factories[provider]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, provider)
	}

	b, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s backend: %w", provider, err)
	}

	return b, nil
}

// Providers returns the registered providers, sorted.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.factories))
	for p := range r.factories {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })

	return providers
}
