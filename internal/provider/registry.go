package provider

import "sync"

// Registry holds all registered adapters keyed by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderName]Source
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[ProviderName]Source),
	}
}

// Register adds a provider to the registry. Adapters that need credentials
// and have none are skipped; the return value reports whether p was added.
func (r *Registry) Register(p Source) bool {
	if a, ok := p.(AuthRequirer); ok && a.RequiresAuth() && !a.Configured() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	return true
}

// Get returns a provider by name, or nil if not registered.
func (r *Registry) Get(name ProviderName) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[name]
}

// All returns all registered providers in a stable order.
func (r *Registry) All() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Source
	for _, name := range AllProviderNames() {
		if p, ok := r.providers[name]; ok {
			result = append(result, p)
		}
	}
	return result
}

// BirthDateSources returns registered birth-date sources in the given order.
func (r *Registry) BirthDateSources(order ...ProviderName) []BirthDateSource {
	return collect[BirthDateSource](r, order)
}

// TagSources returns registered tag sources in the given order.
func (r *Registry) TagSources(order ...ProviderName) []TagSource {
	return collect[TagSource](r, order)
}

// SimilarSources returns registered similarity sources in the given order.
func (r *Registry) SimilarSources(order ...ProviderName) []SimilarSource {
	return collect[SimilarSource](r, order)
}

// MediaSources returns registered media sources in the given order.
func (r *Registry) MediaSources(order ...ProviderName) []MediaSource {
	return collect[MediaSource](r, order)
}

func collect[T Source](r *Registry, order []ProviderName) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []T
	for _, name := range order {
		if p, ok := r.providers[name].(T); ok {
			out = append(out, p)
		}
	}
	return out
}
