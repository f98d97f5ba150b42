package acquirers

import (
	"sync"

	"pay-router.backend/internal/domain/entities"
	domainrepos "pay-router.backend/internal/domain/repositories"
)

// Registry maps acquirer tags to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[entities.Acquirer]domainrepos.AcquirerAdapter
}

func NewRegistry(adapters ...domainrepos.AcquirerAdapter) *Registry {
	r := &Registry{adapters: make(map[entities.Acquirer]domainrepos.AcquirerAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Acquirer().
func (r *Registry) Register(a domainrepos.AcquirerAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Acquirer()] = a
}

func (r *Registry) Get(acquirer entities.Acquirer) (domainrepos.AcquirerAdapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[acquirer]
	return a, ok
}

// Registered returns the tags with an adapter, in enum order.
func (r *Registry) Registered() []entities.Acquirer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.Acquirer, 0, len(r.adapters))
	for _, acq := range entities.AllAcquirers() {
		if _, ok := r.adapters[acq]; ok {
			out = append(out, acq)
		}
	}
	return out
}
