package main

import (
	"github.com/cursive-labs/beacon/definition"
	"github.com/cursive-labs/beacon/profile"
	"github.com/cursive-labs/beacon/schema"
)

// registerBaseProfiles declares the stock profiles every deployment
// carries. Advertiser-specific profiles extend baseProfile through
// declaration chains registered alongside these.
func registerBaseProfiles(profiles *profile.Registry, defs *definition.Registry) error {
	eventTypes, err := defs.Lookup(definition.VocabEventTypes)
	if err != nil {
		return err
	}

	base := &profile.Decl{
		Name:       "base",
		ModulePath: "beacon/profiles",
		Groups: []schema.GroupDecl{
			{
				Name: "system",
				Mode: schema.ModeDeclaration,
				Params: []schema.ParamDecl{
					{
						Name:    "sentinel",
						Aliases: []string{"sentinel", "bs"},
						Policy:  schema.PolicyEnforced,
					},
					{
						Name:        "type",
						Aliases:     []string{"type", "t"},
						Basetype:    schema.BasetypeEnum,
						EnumBinding: eventTypes,
						Policy:      schema.PolicyRequired,
						Aggregations: []schema.AggregationSpec{
							{
								Name: "events-by-type",
								Intervals: []schema.Window{
									schema.OneDay,
									schema.OneWeek,
									schema.Forever,
								},
							},
						},
					},
					{
						Name:    "tracker",
						Aliases: []string{"tracker", "tr"},
						Policy:  schema.PolicyRequired,
					},
					{
						Name:    "provider",
						Aliases: []string{"provider", "pv"},
						Policy:  schema.PolicyOptional,
					},
				},
			},
		},
	}
	if _, err := profiles.Register(base); err != nil {
		return err
	}

	// The default public profile: base semantics, lenient enforcement,
	// reachable through the legacy ref path.
	web := &profile.Decl{
		Name:       "web",
		ModulePath: "beacon/profiles",
		Refcodes:   []string{"web", "www"},
		Lenient:    true,
		Parent:     base,
	}
	if _, err := profiles.Register(web); err != nil {
		return err
	}

	return nil
}
