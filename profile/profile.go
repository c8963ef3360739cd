// Package profile compiles declaration chains into flattened,
// immutable policy specs and maintains the process-wide profile
// registry.
//
// A profile declaration is plain data: a named set of parameter groups
// plus an optional parent declaration. Compile walks the ancestor
// chain, merges groups under the four group modes, and produces one
// compound spec whose parameter and aggregation lists are deterministic
// across recompiles.
package profile

import (
	"errors"

	"github.com/cursive-labs/beacon/schema"
)

// Compile-time schema errors. These abort compilation; a profile that
// fails to compile never serves traffic.
var (
	// ErrInvalidParamName is returned for empty or malformed parameter names.
	ErrInvalidParamName = errors.New("invalid parameter name")
	// ErrDuplicateParameterName is returned when two uncoordinated
	// declarations collide on a canonical name or lookup key.
	ErrDuplicateParameterName = errors.New("duplicate parameter name")
	// ErrUndeclaredParameter is returned when a values-mode or
	// differential-mode group references a parameter no ancestor declared.
	ErrUndeclaredParameter = errors.New("no ancestor declares parameter")
)

// Resolution errors, surfaced to callers as client-side failures.
var (
	// ErrUnknownProfile is returned when a registry lookup misses.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrUnknownRefcode is returned when no profile carries the refcode.
	ErrUnknownRefcode = errors.New("unknown refcode")
	// ErrInvalidRefcode is returned for numeric-looking refcodes.
	ErrInvalidRefcode = errors.New("invalid refcode")
)

// Decl is one profile declaration. Chains are formed through Parent;
// the declaring profile's own groups always win over ancestors for any
// given qualified name.
type Decl struct {
	// Name is the profile name, unique within its module path.
	Name string
	// ModulePath scopes the registry key, mirroring the declaring
	// package of the original definition.
	ModulePath string
	// Refcodes are the legacy ref codes resolving to this profile.
	Refcodes []string
	// Lenient switches the profile to lenient enforcement. The default
	// (false) is strict.
	Lenient bool
	// Groups are the parameter groups, in declaration order.
	Groups []schema.GroupDecl
	// Parent is the next ancestor in the chain, nil at the root.
	Parent *Decl
}

// chain returns the declaration chain from self to root.
func (d *Decl) chain() []*Decl {
	var out []*Decl
	for cur := d; cur != nil; cur = cur.Parent {
		out = append(out, cur)
	}
	return out
}

// Profile is a compiled, flattened policy spec. Immutable after
// compilation; safe for unsynchronized concurrent reads.
type Profile struct {
	name       string
	modulePath string
	refcodes   []string
	lenient    bool
	ancestors  []string

	params  map[string]*schema.Parameter // by qualified name
	byName  map[string]*schema.Parameter // by canonical name
	byKey   map[string]*schema.Parameter // by lookup key / alias
	order   []string                     // qualified names, materialization order
	aggs    []schema.AggregationSpec
	attribs []schema.AttributionSpec
}

// Name returns the profile name.
func (p *Profile) Name() string { return p.name }

// ModulePath returns the declaring module path.
func (p *Profile) ModulePath() string { return p.modulePath }

// Lenient reports whether the profile enforces leniently.
func (p *Profile) Lenient() bool { return p.lenient }

// Refcodes returns the legacy ref codes bound to this profile.
func (p *Profile) Refcodes() []string {
	return append([]string(nil), p.refcodes...)
}

// Ancestors returns the ancestor chain names, closest first.
func (p *Profile) Ancestors() []string {
	return append([]string(nil), p.ancestors...)
}

// Parameters returns the flattened parameter list in materialization
// order. The order is deterministic: recompiling the same declaration
// chain yields an identical list.
func (p *Profile) Parameters() []*schema.Parameter {
	out := make([]*schema.Parameter, 0, len(p.order))
	for _, qn := range p.order {
		out = append(out, p.params[qn])
	}
	return out
}

// Param resolves a parameter by qualified name (Group.Name).
func (p *Profile) Param(qualified string) (*schema.Parameter, bool) {
	param, ok := p.params[qualified]
	return param, ok
}

// ParamByName resolves a parameter by canonical name.
func (p *Profile) ParamByName(name string) (*schema.Parameter, bool) {
	param, ok := p.byName[name]
	return param, ok
}

// ParamByKey resolves a parameter by one of its lookup keys.
func (p *Profile) ParamByKey(key string) (*schema.Parameter, bool) {
	param, ok := p.byKey[key]
	return param, ok
}

// Aggregations returns the compound aggregation list, each spec with
// its owning parameter's qualified name set.
func (p *Profile) Aggregations() []schema.AggregationSpec {
	return append([]schema.AggregationSpec(nil), p.aggs...)
}

// Attributions returns the compound attribution list.
func (p *Profile) Attributions() []schema.AttributionSpec {
	return append([]schema.AttributionSpec(nil), p.attribs...)
}
