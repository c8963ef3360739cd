package schema

import "fmt"

// WindowKind is a calendar granularity for aggregation buckets.
type WindowKind string

// Window kinds.
const (
	WindowDay     WindowKind = "day"
	WindowWeek    WindowKind = "week"
	WindowMonth   WindowKind = "month"
	WindowYear    WindowKind = "year"
	WindowForever WindowKind = "forever"
)

// Window is an explicit (kind, count) pair: Count spans of Kind make up
// one bucket (e.g. {Week, 6} is a six-week window). Count is always 1
// for day, year, and forever kinds.
type Window struct {
	Kind  WindowKind
	Count int
}

// Span returns the effective span count, treating zero as one.
func (w Window) Span() int {
	if w.Count < 1 {
		return 1
	}
	return w.Count
}

// Token renders the window as its vocabulary value, <kind>:<count>.
func (w Window) Token() string {
	return fmt.Sprintf("%s:%d", w.Kind, w.Span())
}

// Common windows, matching the time_windows vocabulary.
var (
	OneDay      = Window{WindowDay, 1}
	OneWeek     = Window{WindowWeek, 1}
	TwoWeeks    = Window{WindowWeek, 2}
	ThreeWeeks  = Window{WindowWeek, 3}
	FourWeeks   = Window{WindowWeek, 4}
	FiveWeeks   = Window{WindowWeek, 5}
	SixWeeks    = Window{WindowWeek, 6}
	Month       = Window{WindowMonth, 1}
	TwoMonths   = Window{WindowMonth, 2}
	ThreeMonths = Window{WindowMonth, 3}
	SixMonths   = Window{WindowMonth, 6}
	Year        = Window{WindowYear, 1}
	Forever     = Window{WindowForever, 1}
)

// AggregationSpec is a named, time-windowed counter specification
// attached to exactly one owning parameter at compile time.
type AggregationSpec struct {
	// Name is the aggregation's bucket-key name.
	Name string
	// Intervals are the windows every hit is bucketed into.
	Intervals []Window
	// Permutations name sibling-parameter combinations that are also
	// bucketed, keyed by permutation name. Each listed sibling's
	// converted value extends the bucket label, so counters split per
	// observed combination; events missing a sibling value skip the
	// permutation.
	Permutations map[string][]string
	// Owner is the qualified name of the owning parameter.
	// Set by the compiler; empty in declarations.
	Owner string
}

// AttributionSpec is a named attribution specification carried through
// compilation. Attribution computation itself lives outside this
// module; the compiler only threads the specs onto the compound
// profile so downstream consumers can resolve them.
type AttributionSpec struct {
	Name  string
	Owner string
}
