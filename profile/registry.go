package profile

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// registryKey identifies a profile by declaring module path and name.
type registryKey struct {
	modulePath string
	name       string
}

// Registry caches compiled profiles for the process lifetime.
// Registration compiles exactly once; lookups afterwards are read-only.
// Thread-safe; constructed at startup and passed by reference.
type Registry struct {
	mu       sync.RWMutex
	profiles map[registryKey]*Profile
	order    []registryKey
}

// NewRegistry creates an empty profile registry.
func NewRegistry() *Registry {
	return &Registry{profiles: make(map[registryKey]*Profile)}
}

// Register compiles a declaration and caches the result.
// Re-registering the same (modulePath, name) is a schema error.
func (r *Registry) Register(decl *Decl) (*Profile, error) {
	p, err := Compile(decl)
	if err != nil {
		return nil, err
	}

	key := registryKey{modulePath: decl.ModulePath, name: decl.Name}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[key]; ok {
		return nil, fmt.Errorf("%w: profile %s.%s registered twice",
			ErrDuplicateParameterName, decl.ModulePath, decl.Name)
	}
	r.profiles[key] = p
	r.order = append(r.order, key)
	return p, nil
}

// MustRegister is Register but panics on error. Intended for static
// profile declarations at startup.
func (r *Registry) MustRegister(decl *Decl) *Profile {
	p, err := r.Register(decl)
	if err != nil {
		panic(err)
	}
	return p
}

// Lookup resolves a compiled profile by module path and name.
func (r *Registry) Lookup(modulePath, name string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[registryKey{modulePath: modulePath, name: name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownProfile, modulePath, name)
	}
	return p, nil
}

// LookupByName resolves a profile by name alone, scanning registration
// order. Used by intake paths that carry only a profile name.
func (r *Registry) LookupByName(name string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.order {
		if key.name == name {
			return r.profiles[key], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
}

// ResolveRef resolves a legacy ref code to its profile by scanning all
// compiled profiles in registration order.
//
// The code is case- and whitespace-normalized before comparison. A
// numeric-looking code fails with ErrInvalidRefcode; a miss fails with
// ErrUnknownRefcode. Both surface to callers as client-side failures.
func (r *Registry) ResolveRef(ref string) (*Profile, error) {
	code := strings.ToLower(strings.TrimSpace(ref))
	if code == "" {
		return nil, fmt.Errorf("%w: empty ref", ErrInvalidRefcode)
	}
	if _, err := strconv.ParseFloat(code, 64); err == nil {
		return nil, fmt.Errorf("%w: numeric ref %q", ErrInvalidRefcode, ref)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.order {
		p := r.profiles[key]
		for _, rc := range p.refcodes {
			if strings.ToLower(strings.TrimSpace(rc)) == code {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRefcode, ref)
}

// Profiles returns all compiled profiles in registration order.
func (r *Registry) Profiles() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Profile, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.profiles[key])
	}
	return out
}
