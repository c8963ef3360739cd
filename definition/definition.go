// Package definition implements the closed, named enumeration mechanism
// backing every protocol vocabulary: event types, providers, parameter
// policies, time windows, and HTTP data slots.
//
// A Definition is a {name -> value} bijection built once at process start
// and never mutated afterwards. Two flavors exist:
//   - frozen: a closed enumeration, sealed at construction
//   - open: a binding table that may carry per-entry configuration and
//     accept additional bindings until explicitly frozen
package definition

import (
	"errors"
	"fmt"
)

// ErrUnknownBinding is returned when a forward or reverse lookup misses.
var ErrUnknownBinding = errors.New("unknown binding")

// ErrFrozenDefinition is returned on any mutation attempt after a
// definition has been sealed.
var ErrFrozenDefinition = errors.New("definition is frozen")

// ErrDuplicateEntry is returned when a name or value is declared twice
// within one definition.
var ErrDuplicateEntry = errors.New("duplicate definition entry")

// Entry declares one name/value binding. Config is optional and only
// meaningful for open definitions (e.g. {policy, default} for a
// parameter-to-type binding table).
type Entry struct {
	Name   string
	Value  string
	Config map[string]any
}

// Definition is an immutable bidirectional name/value table.
// Safe for unsynchronized concurrent reads once frozen.
type Definition struct {
	name    string
	frozen  bool
	forward map[string]string
	reverse map[string]string
	configs map[string]map[string]any
	order   []string
}

// Define builds a frozen definition from the given entries.
// Names and values must each be unique within the definition.
func Define(name string, entries []Entry) (*Definition, error) {
	d, err := DefineOpen(name, entries)
	if err != nil {
		return nil, err
	}
	d.Freeze()
	return d, nil
}

// DefineOpen builds an open definition. Additional entries may be bound
// via Bind until Freeze is called.
func DefineOpen(name string, entries []Entry) (*Definition, error) {
	if name == "" {
		return nil, fmt.Errorf("definition name must not be empty")
	}
	d := &Definition{
		name:    name,
		forward: make(map[string]string, len(entries)),
		reverse: make(map[string]string, len(entries)),
		configs: make(map[string]map[string]any),
	}
	for _, e := range entries {
		if err := d.Bind(e); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// MustDefine is Define but panics on error. Intended for static
// vocabulary declarations at package init, where a malformed table is a
// programming error.
func MustDefine(name string, entries []Entry) *Definition {
	d, err := Define(name, entries)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the definition's own name.
func (d *Definition) Name() string { return d.name }

// Frozen reports whether the definition has been sealed.
func (d *Definition) Frozen() bool { return d.frozen }

// Len returns the number of bindings.
func (d *Definition) Len() int { return len(d.order) }

// Bind adds one entry to an open definition.
// Fails with ErrFrozenDefinition once the table is sealed and with
// ErrDuplicateEntry if the name or value is already bound.
func (d *Definition) Bind(e Entry) error {
	if d.frozen {
		return fmt.Errorf("%w: %s", ErrFrozenDefinition, d.name)
	}
	if e.Name == "" {
		return fmt.Errorf("definition %s: entry name must not be empty", d.name)
	}
	if _, ok := d.forward[e.Name]; ok {
		return fmt.Errorf("%w: name %q in %s", ErrDuplicateEntry, e.Name, d.name)
	}
	if _, ok := d.reverse[e.Value]; ok {
		return fmt.Errorf("%w: value %q in %s", ErrDuplicateEntry, e.Value, d.name)
	}
	d.forward[e.Name] = e.Value
	d.reverse[e.Value] = e.Name
	if e.Config != nil {
		d.configs[e.Name] = e.Config
	}
	d.order = append(d.order, e.Name)
	return nil
}

// Freeze seals the definition. Idempotent.
func (d *Definition) Freeze() { d.frozen = true }

// Forward resolves a name to its value.
func (d *Definition) Forward(name string) (string, error) {
	v, ok := d.forward[name]
	if !ok {
		return "", fmt.Errorf("%w: no name %q in %s", ErrUnknownBinding, name, d.name)
	}
	return v, nil
}

// Reverse resolves a value back to its name.
func (d *Definition) Reverse(value string) (string, error) {
	n, ok := d.reverse[value]
	if !ok {
		return "", fmt.Errorf("%w: no value %q in %s", ErrUnknownBinding, value, d.name)
	}
	return n, nil
}

// Config returns the per-entry configuration for an open binding.
// Entries bound without config return an empty map.
func (d *Definition) Config(name string) (map[string]any, error) {
	if _, ok := d.forward[name]; !ok {
		return nil, fmt.Errorf("%w: no name %q in %s", ErrUnknownBinding, name, d.name)
	}
	cfg, ok := d.configs[name]
	if !ok {
		return map[string]any{}, nil
	}
	return cfg, nil
}

// Has reports whether a name is bound.
func (d *Definition) Has(name string) bool {
	_, ok := d.forward[name]
	return ok
}

// Names returns the bound names in declaration order.
func (d *Definition) Names() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}
