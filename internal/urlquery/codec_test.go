package urlquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadesk-backend/internal/filter"
	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/query"
)

func testDefaults() State {
	return Defaults("default", metadata.View{
		Type:       "table",
		Properties: []string{"name", "taxId"},
		UI:         metadata.ViewUI{Pinned: metadata.Pinned{Left: []string{"name"}}},
		Query: metadata.ViewQuery{
			Sort: []query.SortItem{{Property: "name", Direction: query.Asc}},
		},
	}, 25)
}

func TestDefaults(t *testing.T) {
	d := Defaults("", metadata.View{}, 0)

	assert.Equal(t, "default", d.View)
	assert.Equal(t, "table", d.Type)
	assert.Equal(t, 1, d.Page)
	assert.Equal(t, query.DefaultSize, d.Size)
	assert.Equal(t, "", d.Search)
	assert.Equal(t, []string{}, d.Properties)
	assert.Equal(t, []query.SortItem{}, d.Sort)
	assert.Equal(t, []filter.Clause{}, d.Filter)
	assert.Equal(t, metadata.Pinned{Left: []string{}, Right: []string{}}, d.Pinned)
}

func TestEncode_DefaultsProduceEmptyURL(t *testing.T) {
	defaults := testDefaults()
	assert.Empty(t, Encode(defaults, defaults))
}

func TestEncode_OnlyChangedKeys(t *testing.T) {
	defaults := testDefaults()
	s := defaults
	s.Page = 3
	s.Sort = []query.SortItem{{Property: "taxId", Direction: query.Desc}, {Property: "name", Direction: query.Asc}}

	got := Encode(s, defaults)
	assert.Equal(t, "page=3&sort=taxId%3Adesc%2Cname%3Aasc", got.Encode())
}

func TestDecode_ClampsAndIgnoresGarbage(t *testing.T) {
	defaults := testDefaults()

	got := Decode("page=0&size=abc&sort=name:sideways", defaults)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 25, got.Size)
	assert.Equal(t, defaults.Sort, got.Sort)

	got = Decode("page=-7&size=10", defaults)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 10, got.Size)
}

func TestDecode_MalformedFilterFallsBackToDefault(t *testing.T) {
	defaults := testDefaults()
	defaults.Filter = []filter.Clause{{Property: "isActive", Operator: filter.Equals, Value: filter.Scalar(true)}}

	got := Decode("filter=%5Bnot-json", defaults)
	assert.Equal(t, defaults.Filter, got.Filter)
}

func TestDecode_CompactFilterKeys(t *testing.T) {
	got := Decode("filter%5Bname%24contains%5D=acme&filter[total$between]=10,&filter[status$in]=open,closed&filter[deletedAt$isEmpty]=&filter[x$bogus]=1&filter[qty$equals]=3", testDefaults())

	require.Len(t, got.Filter, 5)
	assert.Equal(t, filter.Clause{Property: "name", Operator: filter.Contains, Value: filter.Scalar("acme")}, got.Filter[0])
	assert.Equal(t, filter.Clause{Property: "total", Operator: filter.Between, Value: filter.Range(float64(10), nil)}, got.Filter[1])
	assert.Equal(t, filter.Clause{Property: "status", Operator: filter.In, Value: filter.List("open", "closed")}, got.Filter[2])
	assert.Equal(t, filter.Clause{Property: "deletedAt", Operator: filter.IsEmpty, Value: filter.NoValue()}, got.Filter[3])
	assert.Equal(t, filter.Clause{Property: "qty", Operator: filter.Equals, Value: filter.Scalar(float64(3))}, got.Filter[4])
}

func TestDecode_JSONFilterWinsOverCompact(t *testing.T) {
	raw := `filter=[{"property":"name","operator":"equals","value":"x"}]&filter[name$contains]=y`
	got := Decode(raw, testDefaults())

	assert.Equal(t, []filter.Clause{{Property: "name", Operator: filter.Equals, Value: filter.Scalar("x")}}, got.Filter)
}

func TestDecode_EmptyListsOverrideDefaults(t *testing.T) {
	got := Decode("properties=&pinned=&sort=", testDefaults())

	assert.Equal(t, []string{}, got.Properties)
	assert.Equal(t, []string{}, got.Pinned.Left)
	assert.Equal(t, []query.SortItem{}, got.Sort)
}

func TestRoundTrip(t *testing.T) {
	defaults := testDefaults()

	states := []State{
		defaults,
		func() State {
			s := defaults
			s.Page = 4
			s.Size = 50
			s.Search = "açaí & co"
			s.View = "archived"
			s.Type = "cards"
			s.Properties = []string{"name", "businessUnit.name"}
			s.Pinned = metadata.Pinned{Left: []string{}, Right: []string{"name"}}
			s.Sort = []query.SortItem{}
			s.Filter = []filter.Clause{
				{Property: "name", Operator: filter.NotContains, Value: filter.Scalar("test")},
				{Property: "total", Operator: filter.Between, Value: filter.Range(float64(1), float64(9))},
				{Property: "tags", Operator: filter.In, Value: filter.List("a", "b")},
				{Property: "deletedAt", Operator: filter.IsNotEmpty, Value: filter.NoValue()},
			}
			return s
		}(),
	}

	for _, s := range states {
		encoded := Encode(s, defaults).Encode()
		got := Decode(encoded, defaults)
		assert.Equal(t, s, got, "round trip through %q", encoded)
	}
}
