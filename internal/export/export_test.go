package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"metadesk-backend/internal/metadata"
)

func testEntity(t *testing.T) *metadata.ResolvedEntity {
	t.Helper()
	def, err := metadata.ParseDefinition([]byte(`
name: businessUnit
properties:
  id: {type: code}
  name: {type: text}
  status:
    type: select
    options:
      - {value: a, label: Active}
      - {value: i, label: Inactive}
`))
	require.NoError(t, err)
	reg, err := metadata.NewRegistry([]metadata.EntityDef{def}, nil, nil)
	require.NoError(t, err)
	e, err := reg.Entity("businessUnit", "en")
	require.NoError(t, err)
	return e
}

func TestWriteXLSX(t *testing.T) {
	e := testEntity(t)
	rows := []map[string]any{
		{"id": "bu1", "name": "Acme", "status": "a"},
		{"id": "bu2", "name": "Globex", "status": "i"},
		{"id": "bu3", "name": nil, "status": "x"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, e, []string{"name", "status", "extra"}, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	assert.Equal(t, e.Label, sheet)
	got, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, got, 4)
	name, _ := e.Property("name")
	status, _ := e.Property("status")
	assert.Equal(t, []string{name.Label, status.Label, "extra"}, got[0])
	assert.Equal(t, []string{"Acme", "Active"}, got[1])
	assert.Equal(t, []string{"Globex", "Inactive"}, got[2])
	assert.Equal(t, []string{"", "x"}, got[3])
}

func TestLookup(t *testing.T) {
	row := map[string]any{
		"name":         "HQ",
		"businessUnit": map[string]any{"name": "Acme"},
	}
	assert.Equal(t, "HQ", lookup(row, "name"))
	assert.Equal(t, "Acme", lookup(row, "businessUnit.name"))
	assert.Nil(t, lookup(row, "businessUnit.missing"))
	assert.Nil(t, lookup(row, "name.nested"))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Export", sheetName(""))
	assert.Equal(t, "Units-Locations", sheetName("Units/Locations"))
	assert.Len(t, []rune(sheetName("A very long entity label that exceeds the limit")), maxSheetName)
}
