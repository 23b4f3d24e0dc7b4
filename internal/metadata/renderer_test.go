package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"metadesk-backend/internal/filter"
)

func property(types *PropertyTypes, typ string) *Property {
	pt := types.Resolve(typ)
	return &Property{Key: "p", Type: pt.ID, PropertyType: pt}
}

func TestResolveFilterInput(t *testing.T) {
	types := NewBuiltinPropertyTypes()

	assert.Nil(t, ResolveFilterInput(property(types, "text"), filter.IsEmpty))
	assert.Nil(t, ResolveFilterInput(property(types, "relation"), filter.Some))

	between := ResolveFilterInput(property(types, "currency"), filter.Between)
	assert.Equal(t, RenderFilterNumber, between.Kind)
	assert.Equal(t, true, between.Props["range"])

	in := ResolveFilterInput(property(types, "number"), filter.In)
	assert.Equal(t, true, in.Props["multiple"])

	date := ResolveFilterInput(property(types, "datetime"), filter.Between)
	assert.Equal(t, RenderFilterDate, date.Kind)
	assert.Equal(t, map[string]any{"range": true}, date.Props)

	sel := property(types, "select")
	sel.Options = []Option{{Value: "a", Label: "A"}}
	multi := ResolveFilterInput(sel, filter.In)
	assert.Equal(t, true, multi.Props["multiple"])
	assert.Equal(t, sel.Options, multi.Props["options"])
}

func TestResolveInput_UnknownKindFallsBackToText(t *testing.T) {
	p := &Property{Key: "p", PropertyType: &PropertyType{ID: "odd", Input: "hologram", Display: "hologram"}}

	assert.Equal(t, "InputText", ResolveInput(p).Component)
	assert.Equal(t, "DisplayText", ResolveDisplay(p).Component)
}

func TestResolveInput_CarriesMaskAndEntity(t *testing.T) {
	types := NewBuiltinPropertyTypes()

	cur := property(types, "currency")
	cur.Mask = ResolveMask("currency")
	assert.Equal(t, &Renderer{Kind: RenderCurrency, Component: "InputCurrency", Props: map[string]any{"mask": "#.##0,00"}}, ResolveInput(cur))

	rel := property(types, "relation")
	rel.Entity = "businessUnit"
	assert.Equal(t, "businessUnit", ResolveDisplay(rel).Props["entity"])
}

func TestResolveMask(t *testing.T) {
	assert.Equal(t, "", ResolveMask(""))
	assert.Equal(t, "##.###.###/####-##", ResolveMask("companyDocument"))
	assert.Equal(t, "##-#######", ResolveMask("companyDocument:US"))
	assert.Equal(t, "##############", ResolveMask("companyDocument:AR"))
	assert.Equal(t, "(##) #####-####", ResolveMask("(##) #####-####"))
}
