package enforce

import (
	"fmt"

	"github.com/cursive-labs/beacon/types"
)

// convertAll converts every match onto the tracked event's parameter
// map under the two-phase mapper contract: all non-mapper parameters
// convert first, then mappers run in declaration order and may read any
// sibling converted value.
//
// Conversion failures are downgraded to warnings, never hard failures,
// and recorded on the event.
func convertAll(ev *types.TrackedEvent, matches []matched) {
	var deferred []matched

	for _, m := range matches {
		if m.param.Mapper != nil {
			deferred = append(deferred, m)
			continue
		}
		convertOne(ev, m)
	}

	for _, m := range deferred {
		value, err := m.param.Mapper(ev.Params, m.raw)
		if err != nil {
			ev.AddWarning(fmt.Sprintf("mapper for %s: %v", m.param.QualifiedName(), err))
			continue
		}
		ev.Params[m.param.Name] = value
	}
}

// convertOne converts a single non-mapper match.
func convertOne(ev *types.TrackedEvent, m matched) {
	if m.static {
		// Static string values still pass through the caster; other
		// static values are already typed.
		if raw, ok := m.param.StaticValue.(string); ok {
			value, err := m.param.Convert(raw)
			if err != nil {
				ev.AddWarning(fmt.Sprintf("static value for %s: %v", m.param.QualifiedName(), err))
				return
			}
			ev.Params[m.param.Name] = value
			return
		}
		ev.Params[m.param.Name] = m.param.StaticValue
		return
	}

	value, err := m.param.Convert(m.raw)
	if err != nil {
		ev.AddWarning(fmt.Sprintf("conversion failed: %v", err))
		return
	}
	ev.Params[m.param.Name] = value
}
