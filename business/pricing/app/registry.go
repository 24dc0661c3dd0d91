package app

import (
	"sync"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
)

// Registry holds the configured adapters in registration order.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	adapters map[string]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter. Slugs must be unique.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	slug := a.Slug()
	if _, dup := r.adapters[slug]; dup {
		return apperror.Validation(apperror.CodeSourceDuplicate, slug)
	}
	r.adapters[slug] = a
	r.order = append(r.order, slug)
	return nil
}

// AdaptersForChain returns enabled adapters that support chainID and belong
// to the chain's family.
func (r *Registry) AdaptersForChain(chainID uint64) []Adapter {
	family := asset.FamilyOf(chainID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Adapter, 0, len(r.order))
	for _, slug := range r.order {
		a := r.adapters[slug]
		if a.Config().Family != family {
			continue
		}
		if !a.IsEnabled() || !a.SupportedChains().Contains(chainID) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// SetEnabled toggles one adapter.
func (r *Registry) SetEnabled(slug string, enabled bool) error {
	r.mu.RLock()
	a, ok := r.adapters[slug]
	r.mu.RUnlock()
	if !ok {
		return apperror.NotFound(apperror.CodeSourceNotFound, slug)
	}
	a.SetEnabled(enabled)
	return nil
}

// Adapter returns the adapter registered under slug.
func (r *Registry) Adapter(slug string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[slug]
	return a, ok
}

// AllConfigs returns a snapshot of every source configuration.
func (r *Registry) AllConfigs() []domain.SourceConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.SourceConfig, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.adapters[slug].Config())
	}
	return out
}
