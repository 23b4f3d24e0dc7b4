package metadata

import (
	"errors"
	"testing"

	"metadesk-backend/internal/filter"
)

func TestResolve_InheritsFromParent(t *testing.T) {
	types := NewBuiltinPropertyTypes()

	code := types.Resolve("code")
	if code.ID != "code" {
		t.Fatalf("expected id code, got %s", code.ID)
	}
	if code.DefaultOperator != filter.Equals {
		t.Fatalf("expected own default operator to win, got %s", code.DefaultOperator)
	}
	if code.FilterInput != RenderFilterText {
		t.Fatalf("expected filter input inherited from text, got %s", code.FilterInput)
	}
	if code.DefaultValue != "" {
		t.Fatalf("expected default value inherited from text, got %v", code.DefaultValue)
	}
	if len(code.Lineage) != 2 || code.Lineage[0] != "text" || code.Lineage[1] != "code" {
		t.Fatalf("unexpected lineage %v", code.Lineage)
	}
}

func TestResolve_ReturnsSameReference(t *testing.T) {
	types := NewBuiltinPropertyTypes()

	first := types.Resolve("currency")
	second := types.Resolve("currency")
	if first != second {
		t.Fatal("expected memoized resolution to return the same pointer")
	}
	// number + currency, each resolved once
	if got := types.resolutions.Load(); got != 2 {
		t.Fatalf("expected 2 resolutions, got %d", got)
	}
}

func TestResolve_UnknownFallsBackToText(t *testing.T) {
	types := NewBuiltinPropertyTypes()

	got := types.Resolve("hologram")
	if got != types.Resolve("text") {
		t.Fatal("expected unknown type to resolve to the text type")
	}
	if _, cached := types.cache.Get("hologram"); cached {
		t.Fatal("unknown ids should not be cached")
	}
}

func TestResolve_ParentIsNotMutated(t *testing.T) {
	types := NewBuiltinPropertyTypes()

	text := types.Resolve("text")
	before := len(text.Operators)
	code := types.Resolve("code")
	code.Operators[0] = "mutated"

	if len(text.Operators) != before || text.Operators[0] == "mutated" {
		t.Fatal("child resolution must not share slices with its parent")
	}
}

func TestNewPropertyTypes_DetectsCycle(t *testing.T) {
	_, err := NewPropertyTypes([]PropertyTypeDef{
		{ID: "text", Operators: []string{filter.Equals}},
		{ID: "a", Extends: "b"},
		{ID: "b", Extends: "a"},
	})
	if !errors.Is(err, ErrPropertyTypeCycle) {
		t.Fatalf("expected ErrPropertyTypeCycle, got %v", err)
	}
}

func TestNewPropertyTypes_Validation(t *testing.T) {
	tests := []struct {
		name string
		defs []PropertyTypeDef
	}{
		{"missing text", []PropertyTypeDef{{ID: "number"}}},
		{"unknown parent", []PropertyTypeDef{{ID: "text"}, {ID: "x", Extends: "ghost"}}},
		{"unknown operator", []PropertyTypeDef{{ID: "text", Operators: []string{"like"}}}},
		{"default operator outside set", []PropertyTypeDef{{ID: "text", Operators: []string{filter.Equals}, DefaultOperator: filter.Contains}}},
		{"duplicate id", []PropertyTypeDef{{ID: "text"}, {ID: "text"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPropertyTypes(tt.defs)
			if !errors.Is(err, ErrInvalidPropertyType) {
				t.Fatalf("expected ErrInvalidPropertyType, got %v", err)
			}
		})
	}
}

func TestNewPropertyTypes_InheritedDefaultOperatorChecked(t *testing.T) {
	_, err := NewPropertyTypes([]PropertyTypeDef{
		{ID: "text", Operators: []string{filter.Equals, filter.Contains}, DefaultOperator: filter.Contains},
		{ID: "code", Extends: "text", Operators: []string{filter.Equals}},
	})
	if !errors.Is(err, ErrInvalidPropertyType) {
		t.Fatalf("expected inherited default operator to be rejected, got %v", err)
	}
}

func TestBuiltinTypes_DefaultOperatorsAllowed(t *testing.T) {
	types := NewBuiltinPropertyTypes()
	for _, id := range types.IDs() {
		pt := types.Resolve(id)
		if !pt.AllowsOperator(pt.DefaultOperator) {
			t.Errorf("%s: default operator %q not allowed", id, pt.DefaultOperator)
		}
	}
}
