package enforce

import (
	"fmt"

	"github.com/cursive-labs/beacon/profile"
	"github.com/cursive-labs/beacon/schema"
)

// LegacyRefKey is the reserved legacy query key. On legacy hits its
// presence in the unexpected set is exempt from flagging.
const LegacyRefKey = "ref"

// matched pairs a parameter with its raw observed value.
type matched struct {
	param *schema.Parameter
	raw   string
	// static marks values substituted from the parameter's declared
	// static value rather than observed data.
	static bool
}

// matchProfile reconciles the observed data against the compiled
// profile's parameter set.
//
// Non-body parameters extract directly through their slot. Body/query
// parameters are reconciled by set arithmetic over expected and
// observed keys (valid, no-value, no-schema), followed by an alias
// rescan for multi-alias parameters. Each parameter matches at most
// once, whichever alias hit first; each observed key is consumed at
// most once.
//
// Returned follow-ups are severity-neutral: the caller decides whether
// each one aborts (strict) or becomes a warning (lenient).
func matchProfile(p *profile.Profile, data Data, legacy bool) (matches []matched, warnings []string, followups []*PolicyError) {
	observed := data.Params()
	consumed := make(map[string]bool, len(observed))

	var pending []*schema.Parameter

	for _, param := range p.Parameters() {
		// Non-body sources resolve immediately through their extractor.
		if param.Source != schema.SourceParam {
			if raw, ok := data.Slot(param.Source, slotKey(param)); ok {
				matches = append(matches, matched{param: param, raw: raw})
			} else {
				pending = append(pending, param)
			}
			continue
		}

		// valid = expected ∩ observed, on the primary lookup key.
		key := param.PrimaryKey()
		if raw, ok := observed[key]; ok && !consumed[key] {
			matches = append(matches, matched{param: param, raw: raw})
			consumed[key] = true
			continue
		}

		// Alias rescan: a hit on any unconsumed alias promotes the
		// parameter out of the no-value set.
		if len(param.Aliases) > 1 {
			if m, ok := rescanAliases(param, observed, consumed); ok {
				matches = append(matches, m)
				continue
			}
		}

		// noValue = expected − observed
		pending = append(pending, param)
	}

	// No-value parameters: static value, follow-up, or benign warning.
	for _, param := range pending {
		if param.StaticValue != nil {
			matches = append(matches, matched{param: param, static: true})
			continue
		}
		switch param.Policy {
		case schema.PolicyRequired, schema.PolicyEnforced:
			followups = append(followups, &PolicyError{
				Kind:  KindMissingParameter,
				Param: param.QualifiedName(),
			})
		default:
			warnings = append(warnings, fmt.Sprintf("no value for %s", param.QualifiedName()))
		}
	}

	// noSchema = observed − expected: present but undeclared.
	for key := range observed {
		if consumed[key] {
			continue
		}
		if _, ok := p.ParamByKey(key); ok {
			// Declared but resolved through a different alias.
			continue
		}
		if legacy && key == LegacyRefKey {
			continue
		}
		followups = append(followups, &PolicyError{
			Kind:  KindUnexpectedParameter,
			Param: key,
		})
	}

	return matches, warnings, followups
}

// rescanAliases scans the observed map against every alias still
// unconsumed, in declaration order. The parameter is extracted exactly
// once: the first alias hit consumes the key and ends the scan.
func rescanAliases(param *schema.Parameter, observed map[string]string, consumed map[string]bool) (matched, bool) {
	for _, alias := range param.Aliases {
		if consumed[alias] {
			continue
		}
		if raw, ok := observed[alias]; ok {
			consumed[alias] = true
			return matched{param: param, raw: raw}, true
		}
	}
	return matched{}, false
}

// slotKey is the lookup name for non-body extraction: the first alias
// when declared, otherwise the bare canonical name (headers and cookies
// do not carry the query-prefix convention).
func slotKey(param *schema.Parameter) string {
	if len(param.Aliases) > 0 {
		return param.Aliases[0]
	}
	return param.Name
}
