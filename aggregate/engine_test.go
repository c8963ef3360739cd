package aggregate

import (
	"testing"
	"time"

	"github.com/cursive-labs/beacon/schema"
	"github.com/cursive-labs/beacon/types"
)

func typeParam() *schema.Parameter {
	return &schema.Parameter{
		Name:  "type",
		Group: "system",
		Aggregations: []schema.AggregationSpec{
			{
				Name:      "events-by-type",
				Intervals: []schema.Window{schema.OneDay, schema.OneWeek, schema.Forever},
			},
		},
	}
}

func TestPlan_OneIncrementPerInterval(t *testing.T) {
	e := NewEngine(ModeScalar, nil)
	ev := types.NewTrackedEvent(types.NewRawEvent("/v1/hit", "GET", nil), "web")
	ev.Params["type"] = "impression"

	incs := e.Plan(ev, typeParam(), ts(2013, time.April, 2, 9))
	if len(incs) != 3 {
		t.Fatalf("expected 3 increments, got %d", len(incs))
	}
	for _, inc := range incs {
		if inc.DeltaInt != 1 || inc.Float {
			t.Errorf("non-numeric value should increment by one, got %+v", inc)
		}
	}
	if incs[1].Key != "__aggregation__::events-by-type::2013:14" {
		t.Errorf("unexpected week bucket key %s", incs[1].Key)
	}

	// Every derived bucket key lands on the event.
	if len(ev.Aggregations) != 3 {
		t.Fatalf("expected 3 bucket keys on the event, got %d", len(ev.Aggregations))
	}
	if ev.Aggregations[2] != "__aggregation__::events-by-type::__global__" {
		t.Errorf("unexpected forever bucket key %s", ev.Aggregations[2])
	}
}

func TestPlan_NumericDeltas(t *testing.T) {
	e := NewEngine(ModeScalar, nil)
	param := &schema.Parameter{
		Name: "revenue",
		Aggregations: []schema.AggregationSpec{
			{Name: "revenue", Intervals: []schema.Window{schema.Forever}},
		},
	}

	ev := types.NewTrackedEvent(types.NewRawEvent("/v1/hit", "GET", nil), "web")
	ev.Params["revenue"] = 3.25
	incs := e.Plan(ev, param, ts(2013, time.April, 2, 9))
	if len(incs) != 1 {
		t.Fatalf("expected 1 increment, got %d", len(incs))
	}
	if !incs[0].Float || incs[0].DeltaFloat != 3.25 {
		t.Errorf("float value should increment by its own amount, got %+v", incs[0])
	}

	ev = types.NewTrackedEvent(types.NewRawEvent("/v1/hit", "GET", nil), "web")
	ev.Params["revenue"] = int64(7)
	incs = e.Plan(ev, param, ts(2013, time.April, 2, 9))
	if incs[0].Float || incs[0].DeltaInt != 7 {
		t.Errorf("integer value should increment by its own amount, got %+v", incs[0])
	}
}

func permutedParam() *schema.Parameter {
	return &schema.Parameter{
		Name: "type",
		Aggregations: []schema.AggregationSpec{
			{
				Name:      "events-by-type",
				Intervals: []schema.Window{schema.Forever},
				Permutations: map[string][]string{
					"provider": {"provider"},
					"campaign": {"campaign"},
				},
			},
		},
	}
}

func TestPlan_PermutationsDeterministic(t *testing.T) {
	e := NewEngine(ModeScalar, nil)
	moment := ts(2013, time.April, 2, 9)
	param := permutedParam()

	withValues := func() *types.TrackedEvent {
		ev := types.NewTrackedEvent(types.NewRawEvent("/v1/hit", "GET", nil), "web")
		ev.Params["provider"] = "acme"
		ev.Params["campaign"] = "spring"
		return ev
	}

	first := e.Plan(withValues(), param, moment)
	second := e.Plan(withValues(), param, moment)

	if len(first) != 3 {
		t.Fatalf("expected base + 2 permutation increments, got %d", len(first))
	}
	for i := range first {
		if first[i].Key != second[i].Key {
			t.Errorf("position %d: planning order not deterministic: %s vs %s", i, first[i].Key, second[i].Key)
		}
	}
	// Lexical permutation order, each label carrying its sibling value.
	if first[1].Key != "__aggregation__::events-by-type-campaign:spring::__global__" {
		t.Errorf("unexpected permutation key %s", first[1].Key)
	}
	if first[2].Key != "__aggregation__::events-by-type-provider:acme::__global__" {
		t.Errorf("unexpected permutation key %s", first[2].Key)
	}
}

func TestPlan_PermutationSplitsPerValue(t *testing.T) {
	e := NewEngine(ModeScalar, nil)
	moment := ts(2013, time.April, 2, 9)
	param := permutedParam()

	forProvider := func(provider string) string {
		ev := types.NewTrackedEvent(types.NewRawEvent("/v1/hit", "GET", nil), "web")
		ev.Params["provider"] = provider
		incs := e.Plan(ev, param, moment)
		// base + provider permutation; campaign has no value and is skipped.
		if len(incs) != 2 {
			t.Fatalf("expected 2 increments for provider %s, got %d", provider, len(incs))
		}
		return incs[1].Key
	}

	acme := forProvider("acme")
	zenith := forProvider("zenith")
	if acme == zenith {
		t.Errorf("distinct sibling values must bucket separately: %s", acme)
	}
	if acme != "__aggregation__::events-by-type-provider:acme::__global__" {
		t.Errorf("unexpected bucket key %s", acme)
	}
}

func TestPlan_PermutationSkippedWithoutSibling(t *testing.T) {
	e := NewEngine(ModeScalar, nil)
	ev := types.NewTrackedEvent(types.NewRawEvent("/v1/hit", "GET", nil), "web")

	incs := e.Plan(ev, permutedParam(), ts(2013, time.April, 2, 9))
	if len(incs) != 1 {
		t.Fatalf("missing sibling values must skip all permutations, got %d increments", len(incs))
	}
	if incs[0].Key != "__aggregation__::events-by-type::__global__" {
		t.Errorf("unexpected base key %s", incs[0].Key)
	}
}

func TestPlan_HashFieldMode(t *testing.T) {
	e := NewEngine(ModeHashField, nil)
	ev := types.NewTrackedEvent(types.NewRawEvent("/v1/hit", "GET", nil), "web")

	incs := e.Plan(ev, typeParam(), ts(2013, time.April, 2, 9))
	week := incs[1]
	if week.Key != "__aggregation__::events-by-type" {
		t.Errorf("expected hash key __aggregation__::events-by-type, got %s", week.Key)
	}
	if week.Field != "2013:14" {
		t.Errorf("expected hash field 2013:14, got %s", week.Field)
	}

	// The event still records the full bucket key.
	if ev.Aggregations[1] != "__aggregation__::events-by-type::2013:14" {
		t.Errorf("event should carry the full bucket key, got %s", ev.Aggregations[1])
	}
}

func TestPlan_NoAggregations(t *testing.T) {
	e := NewEngine(ModeScalar, nil)
	ev := types.NewTrackedEvent(types.NewRawEvent("/v1/hit", "GET", nil), "web")
	param := &schema.Parameter{Name: "tracker"}

	if incs := e.Plan(ev, param, time.Now()); incs != nil {
		t.Errorf("parameter without aggregations should plan nothing, got %v", incs)
	}
	if len(ev.Aggregations) != 0 {
		t.Errorf("no bucket keys should land on the event, got %v", ev.Aggregations)
	}
}

func TestSplitBucket(t *testing.T) {
	head, chunk := splitBucket("__aggregation__::events-by-type::2013:14")
	if head != "__aggregation__::events-by-type" || chunk != "2013:14" {
		t.Errorf("unexpected split: %q / %q", head, chunk)
	}
}
