package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"metadesk-backend/internal/filter"
)

func TestMergeView_PinnedMergedPerSide(t *testing.T) {
	base := View{
		Type:       "table",
		Properties: []string{"name", "taxId"},
		UI:         ViewUI{Pinned: Pinned{Left: []string{"name"}, Right: []string{"taxId"}}},
	}
	got := MergeView(base, ViewOverride{
		Properties: []string{"taxId"},
		UI:         &OverrideUI{Pinned: &PinnedOverride{Left: []string{"taxId"}}},
	})

	assert.Equal(t, "table", got.Type)
	assert.Equal(t, []string{"taxId"}, got.Properties)
	assert.Equal(t, Pinned{Left: []string{"taxId"}, Right: []string{"taxId"}}, got.UI.Pinned)

	got.Properties[0] = "changed"
	assert.Equal(t, []string{"name", "taxId"}, base.Properties, "base must not be modified")
	assert.Equal(t, []string{"name"}, base.UI.Pinned.Left)
}

func TestMergeView_EmptyOverrideCopies(t *testing.T) {
	base := View{Type: "table", Properties: []string{"name"}}
	got := MergeView(base, ViewOverride{})
	assert.Equal(t, base, got)
}

func TestViewQuery_YAMLCoercesFilterValues(t *testing.T) {
	var q ViewQuery
	err := yaml.Unmarshal([]byte(`
sort:
  - property: name
    direction: desc
filter:
  - property: total
    operator: between
    value: [1, 10]
  - property: status
    operator: in
    value: open
  - property: deletedAt
    operator: isEmpty
`), &q)
	assert.NoError(t, err)
	assert.Equal(t, []filter.Clause{
		{Property: "total", Operator: filter.Between, Value: filter.Range(1, 10)},
		{Property: "status", Operator: filter.In, Value: filter.List("open")},
		{Property: "deletedAt", Operator: filter.IsEmpty, Value: filter.NoValue()},
	}, q.Filter)
}

func TestActionDefs_AcceptsMappingAndList(t *testing.T) {
	var def EntityDef
	err := yaml.Unmarshal([]byte(`
name: x
actions:
  - create: {icon: plus}
  - import: {icon: upload}
itemActions:
  edit: {icon: pencil}
  delete: {execute: delete, color: error}
`), &def)
	assert.NoError(t, err)
	assert.Equal(t, ActionDefs{{Key: "create", Icon: "plus"}, {Key: "import", Icon: "upload"}}, def.Actions)
	assert.Equal(t, ActionDefs{{Key: "edit", Icon: "pencil"}, {Key: "delete", Execute: "delete", Color: "error"}}, def.ItemActions)
}
