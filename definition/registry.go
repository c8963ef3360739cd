package definition

import (
	"fmt"
	"sync"
)

// Registry is an explicit, thread-safe collection of definitions.
// Constructed once at startup and passed by reference; reads after
// startup are lock-free on the definitions themselves (each Definition
// is immutable once frozen).
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Add registers a definition under its own name.
// A second definition with the same name is a duplicate entry error.
func (r *Registry) Add(d *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[d.Name()]; ok {
		return fmt.Errorf("%w: definition %q", ErrDuplicateEntry, d.Name())
	}
	r.defs[d.Name()] = d
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: definition %q", ErrUnknownBinding, name)
	}
	return d, nil
}
