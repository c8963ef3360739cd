package schema

import "github.com/cursive-labs/beacon/definition"

// GroupMode controls how a child group merges against a same-named
// ancestor group during compilation.
type GroupMode string

const (
	// ModeDeclaration introduces or overrides full schema
	// parameter-by-parameter; unspecified parameters are inherited.
	ModeDeclaration GroupMode = "declaration"
	// ModeOverride discards the entire ancestor group by this name;
	// only the child's declared parameters survive.
	ModeOverride GroupMode = "override"
	// ModeValues supplies only default values for parameters whose
	// schema an ancestor already declared.
	ModeValues GroupMode = "values"
	// ModeDifferential shallow-merges the child's partial config onto
	// the ancestor parameter's config, child winning on conflicts.
	ModeDifferential GroupMode = "differential"
)

// ParamDecl is the declaration form of one parameter, as written in a
// profile definition. Zero-valued fields inherit from the ancestor
// under ModeDeclaration/ModeDifferential merging.
type ParamDecl struct {
	Name         string
	Aliases      []string
	Prefix       string
	Source       Source
	Basetype     Basetype
	EnumBinding  *definition.Definition
	Policy       Policy
	StaticValue  any
	Mapper       Mapper
	Config       map[string]any
	Aggregations []AggregationSpec
	Attributions []AttributionSpec
}

// GroupDecl declares one parameter group within a profile definition.
type GroupDecl struct {
	Name   string
	Mode   GroupMode
	Params []ParamDecl
}
