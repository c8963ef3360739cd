package definition

// Vocabulary names for the built-in protocol definitions.
const (
	VocabEventTypes    = "event_types"
	VocabPolicies      = "param_policies"
	VocabTimeWindows   = "time_windows"
	VocabDataSlots     = "data_slots"
	VocabParamPrefixes = "param_prefixes"
)

// Builtin constructs a registry pre-loaded with the protocol
// vocabularies. The wire values here are load-bearing: event type codes
// appear in tracking URLs and window tokens appear in bucket keys, so
// they must stay stable across releases.
func Builtin() *Registry {
	r := NewRegistry()

	// Event type codes as carried on the `type` query parameter.
	mustAdd(r, MustDefine(VocabEventTypes, []Entry{
		{Name: "impression", Value: "i"},
		{Name: "click", Value: "c"},
		{Name: "conversion", Value: "v"},
		{Name: "event", Value: "e"},
	}))

	mustAdd(r, MustDefine(VocabPolicies, []Entry{
		{Name: "enforced", Value: "enforced"},
		{Name: "required", Value: "required"},
		{Name: "preferred", Value: "preferred"},
		{Name: "optional", Value: "optional"},
		{Name: "special", Value: "special"},
	}))

	// Window tokens are <kind>:<count>.
	mustAdd(r, MustDefine(VocabTimeWindows, []Entry{
		{Name: "one_day", Value: "day:1"},
		{Name: "one_week", Value: "week:1"},
		{Name: "two_weeks", Value: "week:2"},
		{Name: "three_weeks", Value: "week:3"},
		{Name: "four_weeks", Value: "week:4"},
		{Name: "five_weeks", Value: "week:5"},
		{Name: "six_weeks", Value: "week:6"},
		{Name: "month", Value: "month:1"},
		{Name: "two_months", Value: "month:2"},
		{Name: "three_months", Value: "month:3"},
		{Name: "six_months", Value: "month:6"},
		{Name: "year", Value: "year:1"},
		{Name: "forever", Value: "forever:1"},
	}))

	mustAdd(r, MustDefine(VocabDataSlots, []Entry{
		{Name: "param", Value: "param"},
		{Name: "header", Value: "header"},
		{Name: "cookie", Value: "cookie"},
		{Name: "path", Value: "path"},
		{Name: "etag", Value: "etag"},
	}))

	// Open binding table: prefixes carry per-entry config so callers can
	// attach defaults without a schema change.
	prefixes, err := DefineOpen(VocabParamPrefixes, []Entry{
		{Name: "internal", Value: "bi", Config: map[string]any{"reserved": true}},
		{Name: "provider", Value: "bp", Config: map[string]any{"reserved": true}},
		{Name: "custom", Value: "bc", Config: map[string]any{"reserved": false}},
	})
	if err != nil {
		panic(err)
	}
	prefixes.Freeze()
	mustAdd(r, prefixes)

	return r
}

func mustAdd(r *Registry, d *Definition) {
	if err := r.Add(d); err != nil {
		panic(err)
	}
}
