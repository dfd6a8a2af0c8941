package providers

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrProviderNotFound is returned when a provider is not registered
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderAlreadyRegistered is returned when trying to register a duplicate provider
	ErrProviderAlreadyRegistered = errors.New("provider already registered")
)

// Registry holds the provider instances, keyed by identity. Providers are
// registered once at startup and never replaced.
type Registry struct {
	mu        sync.RWMutex
	providers map[ID]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[ID]Provider),
	}
}

// Register registers a provider instance
func (r *Registry) Register(provider Provider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := provider.ID()
	if _, err := ParseID(string(id)); err != nil {
		return err
	}
	if _, exists := r.providers[id]; exists {
		return ErrProviderAlreadyRegistered
	}

	r.providers[id] = provider
	return nil
}

// Get retrieves a provider by identity
func (r *Registry) Get(id ID) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[id]
	if !exists {
		return nil, ErrProviderNotFound
	}
	return provider, nil
}

// All returns the registered providers in default order
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Provider, 0, len(r.providers))
	for _, id := range DefaultOrder() {
		if p, ok := r.providers[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Available probes a single provider. An unregistered provider reads as
// unavailable rather than an error.
func (r *Registry) Available(ctx context.Context, id ID) bool {
	provider, err := r.Get(id)
	if err != nil {
		return false
	}
	return provider.Available(ctx)
}

// Statuses probes all registered providers concurrently and returns an
// ephemeral status snapshot per provider.
func (r *Registry) Statuses(ctx context.Context) map[ID]Status {
	all := r.All()

	type probed struct {
		id     ID
		status Status
	}

	ch := make(chan probed, len(all))
	var wg sync.WaitGroup
	for _, p := range all {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			ch <- probed{id: p.ID(), status: p.Status(ctx)}
		}(p)
	}
	wg.Wait()
	close(ch)

	out := make(map[ID]Status, len(all))
	for pr := range ch {
		out[pr.id] = pr.status
	}
	return out
}
