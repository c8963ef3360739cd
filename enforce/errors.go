// Package enforce matches, converts, and validates observed hit data
// against a compiled profile, producing a tracked event plus warnings
// and errors, and drives aggregation and ingestion for the hit.
package enforce

import (
	"errors"
	"fmt"
)

// PolicyErrorKind classifies enforcement errors for severity handling.
type PolicyErrorKind int

const (
	// KindMissingParameter: a required/enforced parameter was absent.
	KindMissingParameter PolicyErrorKind = iota
	// KindUnexpectedParameter: an observed key matched no declared parameter.
	KindUnexpectedParameter
	// KindInvalidValue: a raw value failed basetype conversion.
	KindInvalidValue
	// KindMissingSentinel: the system-level sentinel parameter was absent.
	KindMissingSentinel
)

func (k PolicyErrorKind) String() string {
	switch k {
	case KindMissingParameter:
		return "missing_parameter"
	case KindUnexpectedParameter:
		return "unexpected_parameter"
	case KindInvalidValue:
		return "invalid_value"
	case KindMissingSentinel:
		return "missing_sentinel"
	default:
		return "unknown"
	}
}

// PolicyError is a request-time matching error. In strict mode it
// aborts enforcement for the single event; in lenient mode it becomes
// a warning on the event.
type PolicyError struct {
	// Kind classifies the condition.
	Kind PolicyErrorKind
	// Param is the qualified parameter name, or the observed key for
	// unexpected parameters.
	Param string
	// Err is the underlying error, if any.
	Err error
}

func (e *PolicyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Param, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Param)
}

func (e *PolicyError) Unwrap() error { return e.Err }

// IsMissingParameter reports whether err is a missing-parameter condition.
func IsMissingParameter(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe) && pe.Kind == KindMissingParameter
}

// IsUnexpectedParameter reports whether err is an unexpected-parameter condition.
func IsUnexpectedParameter(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe) && pe.Kind == KindUnexpectedParameter
}

// IsMissingSentinel reports whether err is a missing-sentinel refusal.
func IsMissingSentinel(err error) bool {
	var pe *PolicyError
	return errors.As(err, &pe) && pe.Kind == KindMissingSentinel
}
