package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"metadesk-backend/internal/filter"
)

func TestBuildFilterWhere_SkipsEmptyValues(t *testing.T) {
	got := BuildFilterWhere([]filter.Clause{
		{Property: "name", Operator: filter.Contains, Value: filter.Scalar("")},
	})
	assert.Nil(t, got)
}

func TestBuildFilterWhere_EmptyCategoryNeedsNoValue(t *testing.T) {
	got := BuildFilterWhere([]filter.Clause{
		{Property: "name", Operator: filter.IsEmpty},
	})
	assert.Equal(t, Condition{"name": map[string]any{"equals": nil}}, got)
}

func TestBuildFilterWhere_SingleClauseIsUnwrapped(t *testing.T) {
	got := BuildFilterWhere([]filter.Clause{
		{Property: "name", Operator: filter.Contains, Value: filter.Scalar("acme")},
		{Property: "name", Operator: "bogus", Value: filter.Scalar("x")},
	})
	assert.Equal(t, Condition{"name": map[string]any{"contains": "acme"}}, got)
}

func TestBuildFilterWhere_AndPreservesOrder(t *testing.T) {
	got := BuildFilterWhere([]filter.Clause{
		{Property: "status", Operator: filter.In, Value: filter.List("a", "b")},
		{Property: "total", Operator: filter.Between, Value: filter.Range(10, nil)},
		{Property: "name", Operator: filter.NotStartsWith, Value: filter.Scalar("x")},
	})
	assert.Equal(t, Condition{And: []Condition{
		{"status": map[string]any{"in": []any{"a", "b"}}},
		{"total": map[string]any{"gte": 10}},
		{"name": map[string]any{"not": map[string]any{"startsWith": "x"}}},
	}}, got)
}

func TestBuildFilterWhere_NoClauses(t *testing.T) {
	assert.Nil(t, BuildFilterWhere(nil))
	assert.Nil(t, BuildFilterWhere([]filter.Clause{}))
}

func TestBuildFilterWhere_MismatchedShapeSkipped(t *testing.T) {
	got := BuildFilterWhere([]filter.Clause{
		{Property: "status", Operator: filter.In, Value: filter.Scalar("a")},
		{Property: "total", Operator: filter.Between, Value: filter.Range("", "")},
	})
	assert.Nil(t, got)
}

func TestBuildFilterWhere_Relation(t *testing.T) {
	got := BuildFilterWhere([]filter.Clause{
		{Property: "locations", Operator: filter.Some, Value: filter.List("l1")},
	})
	assert.Equal(t, Condition{"locations": map[string]any{
		"some": map[string]any{"id": map[string]any{"in": []any{"l1"}}},
	}}, got)
}

func TestBuildFilterWhere_CaseInsensitive(t *testing.T) {
	c := Compiler{CaseInsensitive: true}
	got := c.BuildFilterWhere([]filter.Clause{
		{Property: "name", Operator: filter.EndsWith, Value: filter.Scalar("inc")},
	})
	assert.Equal(t, Condition{"name": map[string]any{"endsWith": "inc", "mode": "insensitive"}}, got)
}

func TestBuildSearchWhere(t *testing.T) {
	assert.Nil(t, BuildSearchWhere("", []string{"name"}))
	assert.Nil(t, BuildSearchWhere("acme", nil))

	got := BuildSearchWhere("acme", []string{"name", "legalName"})
	assert.Equal(t, Condition{Or: []Condition{
		{"name": map[string]any{"contains": "acme"}},
		{"legalName": map[string]any{"contains": "acme"}},
	}}, got)

	insensitive := Compiler{CaseInsensitive: true}.BuildSearchWhere("acme", []string{"name"})
	assert.Equal(t, Condition{Or: []Condition{
		{"name": map[string]any{"contains": "acme", "mode": "insensitive"}},
	}}, insensitive)
}

func TestBuildSelect_MergesRelationFields(t *testing.T) {
	got := BuildSelect([]string{"a", "b.c", "b.d"})
	assert.Equal(t, Selection{
		"a": true,
		"b": Selection{"select": Selection{"c": true, "d": true}},
	}, got)
}

func TestBuildSelect_Empty(t *testing.T) {
	assert.Nil(t, BuildSelect(nil))
	assert.Nil(t, BuildSelect([]string{""}))
}

func TestMergeConditions(t *testing.T) {
	a := Condition{"a": true}
	b := Condition{"b": true}
	assert.Nil(t, MergeConditions(nil, Condition{}))
	assert.Equal(t, a, MergeConditions(nil, a))
	assert.Equal(t, Condition{And: []Condition{a, b}}, MergeConditions(a, nil, b))
}

func TestCompile(t *testing.T) {
	d := Descriptor{
		Page:       3,
		Size:       10,
		Sort:       []SortItem{{Property: "name", Direction: Desc}, {Property: "taxId", Direction: "sideways"}},
		Search:     "acme",
		Filter:     []filter.Clause{{Property: "isActive", Operator: filter.Equals, Value: filter.Scalar(true)}},
		Properties: []string{"name"},
	}
	got := Compile(d, []string{"name"})

	assert.Equal(t, 20, got.Skip)
	assert.Equal(t, 10, got.Take)
	assert.Equal(t, []OrderBy{{"name": Desc}, {"taxId": Asc}}, got.OrderBy)
	assert.Equal(t, Condition{And: []Condition{
		{Or: []Condition{{"name": map[string]any{"contains": "acme"}}}},
		{"isActive": map[string]any{"equals": true}},
	}}, got.Where)
	assert.Equal(t, Selection{"name": true}, got.Select)
}

func TestCompile_ClampsPagination(t *testing.T) {
	got := Compile(Descriptor{Page: -4, Size: 0}, nil)
	assert.Equal(t, 0, got.Skip)
	assert.Equal(t, 1, got.Take)
	assert.Nil(t, got.Where)
	assert.Nil(t, got.Select)
	assert.Empty(t, got.OrderBy)
}
