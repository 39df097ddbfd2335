package collector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/cryptodash/internal/core"
)

// NamedPriceSource is a live price source that can be chosen by name.
type NamedPriceSource interface {
	PriceSource
	Name() string
}

// Registry manages the live price sources
type Registry struct {
	mu      sync.RWMutex
	sources map[string]NamedPriceSource
}

// NewRegistry creates a new price source registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]NamedPriceSource),
	}
}

// Register adds a source to the registry
func (r *Registry) Register(s NamedPriceSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get retrieves a source by name
func (r *Registry) Get(name string) (NamedPriceSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

// Select returns the named source, failing with core.ErrConfigInvalid for an
// unknown name.
func (r *Registry) Select(name string) (NamedPriceSource, error) {
	s, ok := r.Get(name)
	if !ok {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown live price source %q (have %v)", name, r.Names()))
	}
	return s, nil
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
