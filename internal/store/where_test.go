package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/query"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	defs, err := metadata.LoadDefinitions("testdata/entities")
	require.NoError(t, err)
	reg, err := metadata.NewRegistry(defs, nil, nil)
	require.NoError(t, err)
	s, err := NewSchema(reg)
	require.NoError(t, err)
	return s
}

func renderWhere(t *testing.T, s *Schema, entity string, cond map[string]any) (string, []any, error) {
	t.Helper()
	tbl, ok := s.table(entity)
	require.True(t, ok)
	b := newSQLBuilder(&PostgresDialect{})
	sql, err := b.where(tbl, b.alias(), cond)
	return sql, b.pb.Params(), err
}

func TestSchemaColumnsAndLinks(t *testing.T) {
	s := testSchema(t)

	bu, _ := s.table("businessUnit")
	assert.Equal(t, []string{"id", "name", "isActive", "revenue"}, bu.columnNames())
	assert.Equal(t, []string{"isActive"}, bu.boolNames)
	require.Contains(t, bu.links, "locations")
	assert.True(t, bu.links["locations"].many)
	assert.Equal(t, "businessUnitId", bu.links["locations"].targetCol)

	loc, _ := s.table("location")
	assert.Equal(t, []string{"id", "name", "businessUnitId"}, loc.columnNames())
	assert.Equal(t, "businessUnitId", loc.links["businessUnit"].sourceCol)
	assert.Equal(t, "businessUnitId", loc.links["businessUnitId"].sourceCol)
}

func TestWhere(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name   string
		entity string
		cond   map[string]any
		sql    string
		params []any
	}{
		{
			name:   "empty",
			entity: "businessUnit",
			cond:   nil,
			sql:    "",
		},
		{
			name:   "scalar shorthand and null",
			entity: "businessUnit",
			cond:   map[string]any{"isActive": true, "revenue": nil},
			sql:    `(t0."isActive" = $1 AND t0."revenue" IS NULL)`,
			params: []any{true},
		},
		{
			name:   "insensitive contains",
			entity: "businessUnit",
			cond:   query.Condition{"name": map[string]any{"contains": "ac", "mode": "insensitive"}},
			sql:    `t0."name" ILIKE $1 ESCAPE '\'`,
			params: []any{"%ac%"},
		},
		{
			name:   "like wildcards are escaped",
			entity: "location",
			cond:   map[string]any{"name": map[string]any{"endsWith": "50%"}},
			sql:    `t0."name" LIKE $1 ESCAPE '\'`,
			params: []any{`%50\%`},
		},
		{
			name:   "negated text operator keeps its mode",
			entity: "businessUnit",
			cond:   map[string]any{"name": map[string]any{"not": map[string]any{"contains": "x", "mode": "insensitive"}}},
			sql:    `NOT (t0."name" ILIKE $1 ESCAPE '\')`,
			params: []any{"%x%"},
		},
		{
			name:   "AND of compiled conditions",
			entity: "businessUnit",
			cond: query.Condition{query.And: []query.Condition{
				{"isActive": true},
				{"revenue": map[string]any{"gte": 10, "lte": 20}},
			}},
			sql:    `(t0."isActive" = $1 AND (t0."revenue" >= $2 AND t0."revenue" <= $3))`,
			params: []any{true, 10, 20},
		},
		{
			name:   "OR with NOT from decoded JSON",
			entity: "businessUnit",
			cond: map[string]any{"OR": []any{
				map[string]any{"name": map[string]any{"startsWith": "A"}},
				map[string]any{"NOT": map[string]any{"name": nil}},
			}},
			sql:    `(t0."name" LIKE $1 ESCAPE '\' OR NOT t0."name" IS NULL)`,
			params: []any{"A%"},
		},
		{
			name:   "OR with an empty member matches everything",
			entity: "businessUnit",
			cond:   map[string]any{"OR": []any{map[string]any{}, map[string]any{"name": "x"}}},
			sql:    "",
		},
		{
			name:   "in, notIn and between",
			entity: "businessUnit",
			cond: map[string]any{
				"id":      map[string]any{"in": []any{"a", "b"}, "notIn": []any{}},
				"revenue": map[string]any{"between": []any{1, 5}},
			},
			sql:    `((t0."id" IN ($1, $2) AND 1=1) AND t0."revenue" BETWEEN $3 AND $4)`,
			params: []any{"a", "b", 1, 5},
		},
		{
			name:   "hasMany some",
			entity: "businessUnit",
			cond:   map[string]any{"locations": map[string]any{"some": map[string]any{"name": map[string]any{"equals": "HQ"}}}},
			sql:    `EXISTS (SELECT 1 FROM "location" t1 WHERE t1."businessUnitId" = t0."id" AND t1."name" = $1)`,
			params: []any{"HQ"},
		},
		{
			name:   "hasMany every",
			entity: "businessUnit",
			cond:   map[string]any{"locations": map[string]any{"every": map[string]any{"name": map[string]any{"in": []any{"a", "b"}}}}},
			sql:    `NOT EXISTS (SELECT 1 FROM "location" t1 WHERE t1."businessUnitId" = t0."id" AND NOT t1."name" IN ($1, $2))`,
			params: []any{"a", "b"},
		},
		{
			name:   "hasMany none",
			entity: "businessUnit",
			cond:   map[string]any{"locations": map[string]any{"none": map[string]any{}}},
			sql:    `NOT EXISTS (SELECT 1 FROM "location" t1 WHERE t1."businessUnitId" = t0."id")`,
		},
		{
			name:   "relation property filtered by ids",
			entity: "location",
			cond:   map[string]any{"businessUnitId": map[string]any{"some": map[string]any{"id": map[string]any{"in": []any{"bu1"}}}}},
			sql:    `EXISTS (SELECT 1 FROM "businessUnit" t1 WHERE t1."id" = t0."businessUnitId" AND t1."id" IN ($1))`,
			params: []any{"bu1"},
		},
		{
			name:   "relation property as a plain column",
			entity: "location",
			cond:   map[string]any{"businessUnitId": map[string]any{"equals": "bu1"}},
			sql:    `t0."businessUnitId" = $1`,
			params: []any{"bu1"},
		},
		{
			name:   "flattened hasOne property",
			entity: "location",
			cond:   map[string]any{"businessUnit.name": map[string]any{"contains": "ac"}},
			sql:    `EXISTS (SELECT 1 FROM "businessUnit" t1 WHERE t1."id" = t0."businessUnitId" AND t1."name" LIKE $1 ESCAPE '\')`,
			params: []any{"%ac%"},
		},
		{
			name:   "to-one shorthand",
			entity: "location",
			cond:   map[string]any{"businessUnit": map[string]any{"name": "Acme"}},
			sql:    `EXISTS (SELECT 1 FROM "businessUnit" t1 WHERE t1."id" = t0."businessUnitId" AND t1."name" = $1)`,
			params: []any{"Acme"},
		},
		{
			name:   "missing to-one",
			entity: "location",
			cond:   map[string]any{"businessUnit": map[string]any{"is": nil}},
			sql:    `NOT EXISTS (SELECT 1 FROM "businessUnit" t1 WHERE t1."id" = t0."businessUnitId")`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := renderWhere(t, s, tt.entity, tt.cond)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestWhereErrors(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name string
		cond map[string]any
		want error
	}{
		{"unknown field", map[string]any{"password": "x"}, ErrUnknownField},
		{"unknown nested field", map[string]any{"locations": map[string]any{"some": map[string]any{"secret": 1}}}, ErrUnknownField},
		{"unknown operator", map[string]any{"name": map[string]any{"like": "x"}}, ErrInvalidQuery},
		{"in without a list", map[string]any{"id": map[string]any{"in": "a"}}, ErrInvalidQuery},
		{"to-many without operator", map[string]any{"locations": map[string]any{"name": "x"}}, ErrInvalidQuery},
		{"malformed group", map[string]any{"AND": "x"}, ErrInvalidQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := renderWhere(t, s, "businessUnit", tt.cond)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestOrderBy(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		name   string
		entity string
		items  []query.OrderBy
		sql    string
	}{
		{
			name:   "columns in order",
			entity: "businessUnit",
			items:  []query.OrderBy{{"name": "desc"}, {"id": "asc"}},
			sql:    `t0."name" DESC, t0."id" ASC`,
		},
		{
			name:   "to-many count",
			entity: "businessUnit",
			items:  []query.OrderBy{{"locations": map[string]any{"_count": "desc"}}},
			sql:    `(SELECT COUNT(*) FROM "location" t1 WHERE t1."businessUnitId" = t0."id") DESC`,
		},
		{
			name:   "to-one nested",
			entity: "location",
			items:  []query.OrderBy{{"businessUnit": map[string]any{"name": "asc"}}},
			sql:    `(SELECT t1."name" FROM "businessUnit" t1 WHERE t1."id" = t0."businessUnitId") ASC`,
		},
		{
			name:   "flattened key",
			entity: "location",
			items:  []query.OrderBy{{"businessUnit.name": "desc"}},
			sql:    `(SELECT t1."name" FROM "businessUnit" t1 WHERE t1."id" = t0."businessUnitId") DESC`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, _ := s.table(tt.entity)
			b := newSQLBuilder(&PostgresDialect{})
			sql, err := b.orderBy(tbl, b.alias(), tt.items)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, sql)
		})
	}

	tbl, _ := s.table("businessUnit")
	b := newSQLBuilder(&PostgresDialect{})
	if _, err := b.orderBy(tbl, b.alias(), []query.OrderBy{{"name": "up"}}); !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery for a bad direction, got %v", err)
	}
	if _, err := b.orderBy(tbl, b.alias(), []query.OrderBy{{"createdAt": "asc"}}); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}
