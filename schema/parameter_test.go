package schema

import (
	"errors"
	"testing"

	"github.com/cursive-labs/beacon/definition"
)

func TestLookupKeys(t *testing.T) {
	aliased := &Parameter{Name: "adid", Aliases: []string{"adid", "asid", "ad_id"}, Prefix: "bi"}
	keys := aliased.LookupKeys()
	if len(keys) != 3 || keys[0] != "adid" || keys[1] != "asid" || keys[2] != "ad_id" {
		t.Errorf("alias list should pass through in order, got %v", keys)
	}
	if aliased.PrimaryKey() != "adid" {
		t.Errorf("expected primary key adid, got %s", aliased.PrimaryKey())
	}

	prefixed := &Parameter{Name: "campaign", Prefix: "bi"}
	keys = prefixed.LookupKeys()
	if len(keys) != 1 || keys[0] != "bi_campaign" {
		t.Errorf("expected [bi_campaign], got %v", keys)
	}
}

func TestQualifiedName(t *testing.T) {
	p := &Parameter{Name: "type", Group: "system"}
	if p.QualifiedName() != "system.type" {
		t.Errorf("expected system.type, got %s", p.QualifiedName())
	}
	bare := &Parameter{Name: "type"}
	if bare.QualifiedName() != "type" {
		t.Errorf("ungrouped parameter should use its bare name, got %s", bare.QualifiedName())
	}
}

func TestConvert(t *testing.T) {
	events := definition.MustDefine("event_types", []definition.Entry{
		{Name: "impression", Value: "i"},
		{Name: "click", Value: "c"},
	})

	tests := []struct {
		name  string
		param Parameter
		raw   string
		want  any
		fails bool
	}{
		{"string passthrough", Parameter{Name: "s", Basetype: BasetypeString}, "héllo", "héllo", false},
		{"empty basetype is string", Parameter{Name: "s"}, "v", "v", false},
		{"int", Parameter{Name: "n", Basetype: BasetypeInt}, "42", int64(42), false},
		{"int trims", Parameter{Name: "n", Basetype: BasetypeInt}, " 7 ", int64(7), false},
		{"int rejects junk", Parameter{Name: "n", Basetype: BasetypeInt}, "4x2", nil, true},
		{"float", Parameter{Name: "f", Basetype: BasetypeFloat}, "3.5", 3.5, false},
		{"bool", Parameter{Name: "b", Basetype: BasetypeBool}, "true", true, false},
		{"bool rejects junk", Parameter{Name: "b", Basetype: BasetypeBool}, "yep", nil, true},
		{"enum resolves wire value", Parameter{Name: "type", Basetype: BasetypeEnum, EnumBinding: events}, "i", "impression", false},
		{"enum rejects unknown", Parameter{Name: "type", Basetype: BasetypeEnum, EnumBinding: events}, "z", nil, true},
		{"enum without binding", Parameter{Name: "type", Basetype: BasetypeEnum}, "i", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.param.Convert(tt.raw)
			if tt.fails {
				if !errors.Is(err, ErrInvalidValue) {
					t.Errorf("expected ErrInvalidValue, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("convert: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v (%T), got %v (%T)", tt.want, tt.want, got, got)
			}
		})
	}
}

func TestWindowToken(t *testing.T) {
	tests := []struct {
		w    Window
		want string
	}{
		{OneDay, "day:1"},
		{OneWeek, "week:1"},
		{SixWeeks, "week:6"},
		{ThreeMonths, "month:3"},
		{Year, "year:1"},
		{Forever, "forever:1"},
		{Window{WindowWeek, 0}, "week:1"}, // zero count normalizes to one
	}
	for _, tt := range tests {
		if got := tt.w.Token(); got != tt.want {
			t.Errorf("window %v: expected token %s, got %s", tt.w, tt.want, got)
		}
	}
}

func TestWindowSpan(t *testing.T) {
	if SixWeeks.Span() != 6 {
		t.Errorf("expected span 6, got %d", SixWeeks.Span())
	}
	if (Window{WindowDay, 0}).Span() != 1 {
		t.Errorf("zero count should span 1")
	}
}
