package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/cursive-labs/beacon/log"
	"github.com/cursive-labs/beacon/schema"
	"github.com/cursive-labs/beacon/types"
)

// CounterMode selects how increments address the backend.
type CounterMode string

const (
	// ModeScalar increments a top-level counter per bucket key.
	ModeScalar CounterMode = "scalar"
	// ModeHashField increments a hashed sub-field of a compound
	// counter blob: the key is the aggregation head, the field is the
	// window chunk.
	ModeHashField CounterMode = "hashfield"
)

// Increment is one planned counter delta.
// Exactly one of DeltaInt / DeltaFloat is meaningful, selected by Float;
// the backend uses distinct primitives for integer and float adds.
type Increment struct {
	// Key is the full bucket key (scalar mode) or the hash key
	// (hash-field mode).
	Key string
	// Field is the hash sub-field; empty in scalar mode.
	Field string
	// DeltaInt is the integer delta.
	DeltaInt int64
	// DeltaFloat is the float delta.
	DeltaFloat float64
	// Float selects the float increment primitive.
	Float bool
}

// Engine plans counter increments for matched parameters carrying
// aggregation specs.
type Engine struct {
	mode   CounterMode
	logger *log.Logger
}

// NewEngine creates an aggregation engine. A nil logger disables
// planning logs.
func NewEngine(mode CounterMode, logger *log.Logger) *Engine {
	if mode == "" {
		mode = ModeScalar
	}
	return &Engine{mode: mode, logger: logger}
}

// Plan computes the increments for one matched parameter on one event.
//
// Every (aggregation, permutation, interval) combination attached to
// the parameter yields one increment. The derived bucket keys are
// appended to the event's aggregation list so queries can later resolve
// which counters the event touched.
//
// The delta is +1, or the parameter's converted value for
// numeric-valued parameters.
func (e *Engine) Plan(ev *types.TrackedEvent, param *schema.Parameter, ts time.Time) []Increment {
	if len(param.Aggregations) == 0 {
		return nil
	}

	deltaInt, deltaFloat, isFloat := delta(ev.Params[param.Name])

	var out []Increment
	for _, agg := range param.Aggregations {
		for _, w := range agg.Intervals {
			out = append(out, e.plan(ev, agg.Name, "", w, ts, deltaInt, deltaFloat, isFloat))
			for _, permName := range sortedPerms(agg.Permutations) {
				label, ok := permLabel(ev, permName, agg.Permutations[permName])
				if !ok {
					continue
				}
				out = append(out, e.plan(ev, agg.Name, label, w, ts, deltaInt, deltaFloat, isFloat))
			}
		}
	}

	if e.logger != nil {
		e.logger.Debug("planned increments", map[string]any{
			"param":      param.QualifiedName(),
			"increments": len(out),
		})
	}
	return out
}

// plan derives one increment and records its bucket key on the event.
func (e *Engine) plan(ev *types.TrackedEvent, name, perm string, w schema.Window, ts time.Time,
	deltaInt int64, deltaFloat float64, isFloat bool) Increment {

	bucket := BucketKey(name, perm, w, ts)
	ev.Aggregations = append(ev.Aggregations, bucket)

	inc := Increment{
		DeltaInt:   deltaInt,
		DeltaFloat: deltaFloat,
		Float:      isFloat,
	}
	if e.mode == ModeHashField {
		// Split head::chunk at the final major separator.
		head, chunk := splitBucket(bucket)
		inc.Key = head
		inc.Field = chunk
	} else {
		inc.Key = bucket
	}
	return inc
}

// delta derives the counter delta from a converted parameter value:
// numeric values increment by their own amount, everything else by one.
func delta(value any) (int64, float64, bool) {
	switch v := value.(type) {
	case int64:
		return v, 0, false
	case float64:
		return 0, v, true
	default:
		return 1, 0, false
	}
}

// permLabel renders one permutation's bucket label: the permutation
// name extended with the sibling parameters' converted values, so
// counters split per observed combination. An event missing any
// sibling value skips the permutation entirely.
func permLabel(ev *types.TrackedEvent, name string, siblings []string) (string, bool) {
	label := name
	for _, sib := range siblings {
		v, ok := ev.Params[sib]
		if !ok {
			return "", false
		}
		label += ValueSep + fmt.Sprint(v)
	}
	return label, true
}

// splitBucket splits a bucket key into its head and final chunk.
func splitBucket(bucket string) (head, chunk string) {
	for i := len(bucket) - len(ChunkSep); i > 0; i-- {
		if bucket[i:i+len(ChunkSep)] == ChunkSep {
			return bucket[:i], bucket[i+len(ChunkSep):]
		}
	}
	return bucket, ""
}

// sortedPerms returns permutation names in lexical order so planning
// is deterministic across runs.
func sortedPerms(perms map[string][]string) []string {
	if len(perms) == 0 {
		return nil
	}
	names := make([]string, 0, len(perms))
	for name := range perms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
