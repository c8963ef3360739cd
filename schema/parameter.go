// Package schema describes the declarative parameter model: one
// Parameter per schema field, grouped into ParameterGroups, with
// attached aggregation specs. Declarations here are plain data; the
// profile package compiles them into a flattened, immutable spec.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cursive-labs/beacon/definition"
)

// Source identifies where a parameter's value is extracted from.
type Source string

// Source constants. Param is the query/body slot; the rest are resolved
// by pluggable extractors during matching.
const (
	SourceParam  Source = "param"
	SourceHeader Source = "header"
	SourceCookie Source = "cookie"
	SourcePath   Source = "path"
	SourceEtag   Source = "etag"
)

// Policy is the enforcement severity for a parameter's presence.
type Policy string

// Policy constants.
const (
	// PolicyEnforced hard-fails the hit when the parameter is missing.
	PolicyEnforced Policy = "enforced"
	// PolicyRequired soft-fails: fatal in strict mode, warning otherwise.
	PolicyRequired Policy = "required"
	// PolicyPreferred is a priority hint only.
	PolicyPreferred Policy = "preferred"
	// PolicyOptional has no effect on enforcement.
	PolicyOptional Policy = "optional"
	// PolicySpecial marks parameters handled by bespoke code.
	PolicySpecial Policy = "special"
)

// Basetype is a parameter's value type.
type Basetype string

// Basetype constants.
const (
	BasetypeString Basetype = "string"
	BasetypeInt    Basetype = "int"
	BasetypeFloat  Basetype = "float"
	BasetypeBool   Basetype = "bool"
	BasetypeEnum   Basetype = "enum"
)

// PrefixSeparator joins a prefix token and a parameter name into the
// canonical lookup key when no alias list is declared.
const PrefixSeparator = "_"

// ErrInvalidValue is returned when a raw value cannot be converted to
// the parameter's basetype. Enforcement downgrades this to a warning.
var ErrInvalidValue = errors.New("invalid parameter value")

// Mapper derives a parameter's converted value from the raw value and
// the sibling parameters converted so far.
//
// Mappers run under a hard two-phase contract: every non-mapper
// parameter is converted first, then mappers run in declaration order.
// A mapper may therefore read any non-mapper sibling from params, but
// must not depend on another mapper's output.
type Mapper func(params map[string]any, raw string) (any, error)

// Parameter is one compiled schema field. Created during profile
// compilation and immutable thereafter.
type Parameter struct {
	// Name is the canonical parameter name.
	Name string
	// Group is the owning parameter group's name.
	Group string
	// Aliases are the acceptable incoming names, in match priority
	// order. When empty, the prefixed lookup key applies instead.
	Aliases []string
	// Prefix is the lookup-key prefix token used when Aliases is empty.
	Prefix string
	// Source is the request slot the value is extracted from.
	Source Source
	// Basetype is the value type the raw string converts to.
	Basetype Basetype
	// EnumBinding resolves wire values for BasetypeEnum parameters.
	EnumBinding *definition.Definition
	// Policy is the enforcement severity.
	Policy Policy
	// StaticValue, when non-nil, substitutes for a missing value.
	StaticValue any
	// Mapper, when non-nil, defers conversion to the second phase.
	Mapper Mapper
	// Config carries free-form per-parameter configuration.
	Config map[string]any
	// Aggregations are the counter specs keyed to this parameter.
	Aggregations []AggregationSpec
	// Attributions are attribution specs carried through compilation.
	Attributions []AttributionSpec
}

// QualifiedName returns Group.Name, the collision-checked identity of a
// parameter within one compiled profile.
func (p *Parameter) QualifiedName() string {
	if p.Group == "" {
		return p.Name
	}
	return p.Group + "." + p.Name
}

// LookupKeys returns the incoming names this parameter matches, in
// priority order. An explicit alias list wins; otherwise the prefixed
// convention <prefix>_<name> applies.
func (p *Parameter) LookupKeys() []string {
	if len(p.Aliases) > 0 {
		return p.Aliases
	}
	return []string{p.Prefix + PrefixSeparator + p.Name}
}

// PrimaryKey returns the highest-priority lookup key.
func (p *Parameter) PrimaryKey() string {
	return p.LookupKeys()[0]
}

// Convert casts a raw observed value to the parameter's basetype.
// String basetypes pass through untouched; Go strings are unicode-safe.
func (p *Parameter) Convert(raw string) (any, error) {
	switch p.Basetype {
	case BasetypeString, "":
		return raw, nil
	case BasetypeInt:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidValue, p.Name, raw)
		}
		return v, nil
	case BasetypeFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a float", ErrInvalidValue, p.Name, raw)
		}
		return v, nil
	case BasetypeBool:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a bool", ErrInvalidValue, p.Name, raw)
		}
		return v, nil
	case BasetypeEnum:
		if p.EnumBinding == nil {
			return nil, fmt.Errorf("%w: %s has enum basetype but no binding", ErrInvalidValue, p.Name)
		}
		name, err := p.EnumBinding.Reverse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not in %s", ErrInvalidValue, p.Name, raw, p.EnumBinding.Name())
		}
		return name, nil
	default:
		return nil, fmt.Errorf("%w: %s has unknown basetype %q", ErrInvalidValue, p.Name, p.Basetype)
	}
}
