package profile

import (
	"fmt"
	"strings"

	"github.com/cursive-labs/beacon/definition"
	"github.com/cursive-labs/beacon/schema"
)

// DefaultPrefix is the prefix token applied to parameters declared
// without an explicit prefix or alias list.
const DefaultPrefix = "bi"

// contribution is one declaration's input for a single qualified name.
// Level 0 is the declaring profile; levels increase toward the root.
type contribution struct {
	level int
	mode  schema.GroupMode
	decl  schema.ParamDecl
}

// Compile flattens a declaration chain into one compound profile.
//
// Precedence: the child declaration always wins for any given qualified
// name; ancestors fill gaps. Group modes apply when a descendant group
// merges against a same-named ancestor group:
//
//   - declaration: overlay full schema field-by-field, inherit the rest
//   - override: the ancestor group is discarded entirely
//   - values: only the static value changes, schema is inherited
//   - differential: the partial config shallow-merges onto the
//     ancestor's config, basetype inherited unless re-declared
//
// Compilation is idempotent and deterministic: the same chain always
// yields identical parameter and aggregation lists. It runs exactly
// once per profile, at registration time, never per request.
func Compile(decl *Decl) (*Profile, error) {
	chain := decl.chain()

	// Override boundaries: for each group name, the closest level that
	// declared mode override. Contributions farther than the boundary
	// are discarded.
	overrideAt := make(map[string]int)
	for level, d := range chain {
		for _, g := range d.Groups {
			if g.Mode == schema.ModeOverride {
				if _, ok := overrideAt[g.Name]; !ok {
					overrideAt[g.Name] = level
				}
			}
		}
	}

	// Collect contributions per qualified name, child levels first.
	// Materialization order is first-encounter order over the chain
	// walk, which is deterministic because declarations are slices.
	contribs := make(map[string][]contribution)
	var order []string
	for level, d := range chain {
		for _, g := range d.Groups {
			if boundary, ok := overrideAt[g.Name]; ok && level > boundary {
				continue
			}
			mode := g.Mode
			if mode == "" {
				mode = schema.ModeDeclaration
			}
			for _, pd := range g.Params {
				if err := validateName(pd.Name); err != nil {
					return nil, fmt.Errorf("profile %s, group %s: %w", d.Name, g.Name, err)
				}
				qn := g.Name + "." + pd.Name
				if _, seen := contribs[qn]; !seen {
					order = append(order, qn)
				}
				contribs[qn] = append(contribs[qn], contribution{level: level, mode: mode, decl: pd})
			}
		}
	}

	p := &Profile{
		name:       decl.Name,
		modulePath: decl.ModulePath,
		refcodes:   append([]string(nil), decl.Refcodes...),
		lenient:    decl.Lenient,
		params:     make(map[string]*schema.Parameter),
		byName:     make(map[string]*schema.Parameter),
		byKey:      make(map[string]*schema.Parameter),
	}
	for _, a := range chain[1:] {
		p.ancestors = append(p.ancestors, a.Name)
	}

	for _, qn := range order {
		param, err := materialize(qn, contribs[qn])
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", decl.Name, err)
		}
		if err := p.index(qn, param); err != nil {
			return nil, fmt.Errorf("profile %s: %w", decl.Name, err)
		}
		for _, agg := range param.Aggregations {
			agg.Owner = qn
			p.aggs = append(p.aggs, agg)
		}
		for _, attr := range param.Attributions {
			attr.Owner = qn
			p.attribs = append(p.attribs, attr)
		}
	}

	return p, nil
}

// materialize folds the contributions for one qualified name into a
// parameter, applying farthest-ancestor declarations first so closer
// descendants win field-by-field.
func materialize(qualified string, contribs []contribution) (*schema.Parameter, error) {
	group, name, _ := strings.Cut(qualified, ".")
	param := &schema.Parameter{
		Name:   name,
		Group:  group,
		Prefix: DefaultPrefix,
	}

	declared := false
	for i := len(contribs) - 1; i >= 0; i-- {
		c := contribs[i]
		switch c.mode {
		case schema.ModeDeclaration, schema.ModeOverride:
			overlay(param, c.decl)
			declared = true
		case schema.ModeValues:
			if !declared {
				return nil, fmt.Errorf("%w: values for %s", ErrUndeclaredParameter, qualified)
			}
			param.StaticValue = c.decl.StaticValue
		case schema.ModeDifferential:
			if !declared {
				return nil, fmt.Errorf("%w: differential for %s", ErrUndeclaredParameter, qualified)
			}
			mergeConfig(param, c.decl.Config)
			if c.decl.Basetype != "" {
				param.Basetype = c.decl.Basetype
				param.EnumBinding = c.decl.EnumBinding
			}
		default:
			return nil, fmt.Errorf("%w: group mode %q for %s", ErrInvalidParamName, c.mode, qualified)
		}
	}

	if param.Source == "" {
		param.Source = schema.SourceParam
	}
	if param.Basetype == "" {
		param.Basetype = schema.BasetypeString
	}
	if param.Policy == "" {
		param.Policy = schema.PolicyOptional
	}
	return param, nil
}

// overlay applies the specified fields of a declaration onto the
// parameter being materialized. Unspecified fields inherit.
func overlay(param *schema.Parameter, d schema.ParamDecl) {
	if len(d.Aliases) > 0 {
		param.Aliases = append([]string(nil), d.Aliases...)
	}
	if d.Prefix != "" {
		param.Prefix = d.Prefix
	}
	if d.Source != "" {
		param.Source = d.Source
	}
	if d.Basetype != "" {
		param.Basetype = d.Basetype
		param.EnumBinding = d.EnumBinding
	}
	if d.Policy != "" {
		param.Policy = d.Policy
	}
	if d.StaticValue != nil {
		param.StaticValue = d.StaticValue
	}
	if d.Mapper != nil {
		param.Mapper = d.Mapper
	}
	if d.Config != nil {
		mergeConfig(param, d.Config)
	}
	if len(d.Aggregations) > 0 {
		param.Aggregations = append([]schema.AggregationSpec(nil), d.Aggregations...)
	}
	if len(d.Attributions) > 0 {
		param.Attributions = append([]schema.AttributionSpec(nil), d.Attributions...)
	}
}

// mergeConfig shallow-merges patch onto the parameter's config, patch
// winning on key conflicts.
func mergeConfig(param *schema.Parameter, patch map[string]any) {
	if len(patch) == 0 {
		return
	}
	if param.Config == nil {
		param.Config = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		param.Config[k] = v
	}
}

// index registers a materialized parameter under its qualified name,
// canonical name, and every lookup key, rejecting collisions.
func (p *Profile) index(qualified string, param *schema.Parameter) error {
	if prev, ok := p.byName[param.Name]; ok {
		return fmt.Errorf("%w: %q declared by both %s and %s",
			ErrDuplicateParameterName, param.Name, prev.QualifiedName(), qualified)
	}
	for _, key := range param.LookupKeys() {
		if prev, ok := p.byKey[key]; ok {
			return fmt.Errorf("%w: lookup key %q shared by %s and %s",
				ErrDuplicateParameterName, key, prev.QualifiedName(), qualified)
		}
	}
	p.params[qualified] = param
	p.byName[param.Name] = param
	for _, key := range param.LookupKeys() {
		p.byKey[key] = param
	}
	p.order = append(p.order, qualified)
	return nil
}

// validateName rejects empty names and names carrying the qualifier or
// lookup separators.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidParamName)
	}
	if strings.ContainsAny(name, ". \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidParamName, name)
	}
	return nil
}

// ValidatePrefix checks a prefix token against the param_prefixes
// vocabulary, for declarations that resolve prefixes by name.
func ValidatePrefix(reg *definition.Registry, token string) error {
	d, err := reg.Lookup(definition.VocabParamPrefixes)
	if err != nil {
		return err
	}
	if _, err := d.Reverse(token); err != nil {
		return fmt.Errorf("%w: prefix %q", ErrInvalidParamName, token)
	}
	return nil
}
