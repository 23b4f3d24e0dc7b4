package filter

import (
	"encoding/json"
	"testing"
)

func TestEveryOperatorHasOneCategory(t *testing.T) {
	seen := make(map[string]bool)
	for _, op := range All() {
		if seen[op.ID] {
			t.Fatalf("operator %s declared twice", op.ID)
		}
		seen[op.ID] = true
		if op.Category == "" {
			t.Fatalf("operator %s has no category", op.ID)
		}
	}
	if len(seen) != 21 {
		t.Fatalf("expected 21 operators, got %d", len(seen))
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, ok := Lookup("like"); ok {
		t.Fatal("expected unknown operator to be absent")
	}
	if CategoryOf("like") != "" {
		t.Fatal("expected empty category for unknown operator")
	}
}

func TestInCategory_PreservesCatalogueOrder(t *testing.T) {
	got := InCategory(CategoryEquality, CategoryEmpty)
	want := []string{Equals, NotEquals, IsEmpty, IsNotEmpty}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestValue_IsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		empty bool
	}{
		{"nil scalar", Scalar(nil), true},
		{"blank scalar", Scalar(""), true},
		{"zero is not empty", Scalar(0), false},
		{"false is not empty", Scalar(false), false},
		{"empty list", List(), true},
		{"list of blanks", List(nil, ""), true},
		{"list with item", List("", "a"), false},
		{"open range", Range(nil, nil), true},
		{"half range", Range(nil, 10), false},
		{"no value", NoValue(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.IsEmpty(); got != tt.empty {
				t.Fatalf("expected IsEmpty=%v, got %v", tt.empty, got)
			}
		})
	}
}

func TestClause_ActiveHonoursCategory(t *testing.T) {
	if (Clause{Property: "name", Operator: Contains, Value: Scalar("")}).Active() {
		t.Fatal("blank contains clause must be inactive")
	}
	if !(Clause{Property: "name", Operator: IsEmpty}).Active() {
		t.Fatal("isEmpty clause must be active without a value")
	}
	if (Clause{Property: "age", Operator: Between, Value: Scalar(3)}).Active() {
		t.Fatal("scalar value on a range operator must be inactive")
	}
	if (Clause{Property: "x", Operator: "like", Value: Scalar("a")}).Active() {
		t.Fatal("unknown operator must be inactive")
	}
}

func TestClause_UnmarshalByCategory(t *testing.T) {
	raw := `[
		{"property": "name", "operator": "contains", "value": "acme"},
		{"property": "status", "operator": "in", "value": ["a", "b"]},
		{"property": "total", "operator": "between", "value": [1, 5]},
		{"property": "taxId", "operator": "isEmpty"},
		{"property": "code", "operator": "in", "value": "x"}
	]`
	var clauses []Clause
	if err := json.Unmarshal([]byte(raw), &clauses); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v, ok := clauses[0].Value.Scalar(); !ok || v != "acme" {
		t.Fatalf("expected scalar acme, got %#v", clauses[0].Value)
	}
	if items, ok := clauses[1].Value.List(); !ok || len(items) != 2 {
		t.Fatalf("expected 2-item list, got %#v", clauses[1].Value)
	}
	if low, high, ok := clauses[2].Value.Bounds(); !ok || low != float64(1) || high != float64(5) {
		t.Fatalf("expected range 1..5, got %#v", clauses[2].Value)
	}
	if clauses[3].Value.Kind() != KindNone {
		t.Fatalf("expected no value for isEmpty, got %v", clauses[3].Value.Kind())
	}
	if items, _ := clauses[4].Value.List(); len(items) != 1 || items[0] != "x" {
		t.Fatalf("expected scalar promoted to list, got %#v", clauses[4].Value)
	}
}

func TestClause_MarshalRoundTrip(t *testing.T) {
	in := []Clause{
		{Property: "name", Operator: StartsWith, Value: Scalar("ac")},
		{Property: "total", Operator: Between, Value: Range(nil, float64(9))},
		{Property: "taxId", Operator: IsNotEmpty},
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []Clause
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for i := range in {
		if in[i].Property != out[i].Property || in[i].Operator != out[i].Operator || !in[i].Value.Equal(out[i].Value) {
			t.Fatalf("clause %d changed: %#v -> %#v", i, in[i], out[i])
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		op    string
		value Value
		want  string
	}{
		{Equals, Scalar("x"), "Name = x"},
		{In, List("a", "b"), "Name ∈ [a, b]"},
		{NotStartsWith, Scalar("x"), "Name: ~~x~~…"},
		{Between, Range(1, 2), "Name: 1 – 2"},
		{Between, Range(1, nil), "Name ≥ 1"},
		{Between, Range(nil, 2), "Name ≤ 2"},
		{Between, Range(nil, nil), "Name"},
		{IsEmpty, NoValue(), "Name ∅"},
		{IsNotEmpty, NoValue(), "Name ≠ ∅"},
	}
	for _, tt := range tests {
		if got := Format(tt.op, "Name", tt.value); got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.op, tt.want, got)
		}
	}
}

func TestDefaultValue(t *testing.T) {
	if DefaultValue("", IsEmpty).Kind() != KindNone {
		t.Fatal("empty operators default to no value")
	}
	if DefaultValue("", In).Kind() != KindList {
		t.Fatal("array operators default to a list")
	}
	if low, high, ok := DefaultValue(nil, Between).Bounds(); !ok || low != nil || high != nil {
		t.Fatal("range operators default to an open range")
	}
	if v, _ := DefaultValue("zz", Contains).Scalar(); v != "zz" {
		t.Fatalf("expected type default, got %v", v)
	}
}
