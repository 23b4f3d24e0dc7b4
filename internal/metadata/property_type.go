package metadata

import (
	"errors"
	"fmt"
	"sync/atomic"

	"metadesk-backend/internal/filter"
)

// FallbackType is used for properties whose type id is unknown.
const FallbackType = "text"

var (
	ErrPropertyTypeCycle   = errors.New("property type inheritance cycle")
	ErrInvalidPropertyType = errors.New("invalid property type")
)

// PropertyTypeDef is an authored field-kind definition. Unset fields are
// inherited from the Extends parent.
type PropertyTypeDef struct {
	ID              string
	Extends         string
	Icon            string
	Operators       []string
	DefaultOperator string
	DefaultValue    any
	HasDefault      bool
	Input           RendererKind
	FilterInput     RendererKind
	Display         RendererKind
}

// PropertyType is a resolved field kind: the parent chain merged root to
// leaf, with own fields winning. Resolved values are shared and must not be
// mutated.
type PropertyType struct {
	ID              string       `json:"id"`
	Icon            string       `json:"icon,omitempty"`
	Operators       []string     `json:"operators"`
	DefaultOperator string       `json:"defaultOperator"`
	DefaultValue    any          `json:"defaultValue"`
	Input           RendererKind `json:"input"`
	FilterInput     RendererKind `json:"filterInput,omitempty"`
	Display         RendererKind `json:"display"`
	// Lineage lists the type ids from root to this type.
	Lineage []string `json:"lineage"`
}

// IsA reports whether id appears in the type's inheritance chain.
func (t *PropertyType) IsA(id string) bool {
	for _, l := range t.Lineage {
		if l == id {
			return true
		}
	}
	return false
}

// AllowsOperator reports whether op is in the type's operator subset.
func (t *PropertyType) AllowsOperator(op string) bool {
	for _, o := range t.Operators {
		if o == op {
			return true
		}
	}
	return false
}

// PropertyTypes resolves type ids against a fixed set of definitions.
type PropertyTypes struct {
	defs        map[string]PropertyTypeDef
	order       []string
	cache       *Cache[string, *PropertyType]
	resolutions atomic.Int64
}

// TypesOption configures a PropertyTypes registry.
type TypesOption func(*PropertyTypes)

// WithTypeCache injects the memo used for resolved types.
func WithTypeCache(c *Cache[string, *PropertyType]) TypesOption {
	return func(p *PropertyTypes) { p.cache = c }
}

// NewPropertyTypes validates the definitions and returns a registry. It
// fails when a parent is missing, the inheritance graph has a cycle, an
// operator is unknown, or a default operator is outside the effective
// operator set.
func NewPropertyTypes(defs []PropertyTypeDef, opts ...TypesOption) (*PropertyTypes, error) {
	p := &PropertyTypes{
		defs:  make(map[string]PropertyTypeDef, len(defs)),
		cache: NewCache[string, *PropertyType](),
	}
	for _, o := range opts {
		o(p)
	}

	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: missing id", ErrInvalidPropertyType)
		}
		if _, dup := p.defs[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidPropertyType, d.ID)
		}
		p.defs[d.ID] = d
		p.order = append(p.order, d.ID)
	}
	if _, ok := p.defs[FallbackType]; !ok {
		return nil, fmt.Errorf("%w: fallback type %q is not defined", ErrInvalidPropertyType, FallbackType)
	}

	for _, id := range p.order {
		if err := p.validate(id); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *PropertyTypes) validate(id string) error {
	var operators []string
	var defaultOp string

	seen := map[string]bool{}
	for cur := id; cur != ""; cur = p.defs[cur].Extends {
		if seen[cur] {
			return fmt.Errorf("%w: %q", ErrPropertyTypeCycle, id)
		}
		seen[cur] = true

		d, ok := p.defs[cur]
		if !ok {
			return fmt.Errorf("%w: %q extends unknown type %q", ErrInvalidPropertyType, id, cur)
		}
		for _, op := range d.Operators {
			if _, known := filter.Lookup(op); !known {
				return fmt.Errorf("%w: %q declares unknown operator %q", ErrInvalidPropertyType, cur, op)
			}
		}
		// Walking leaf to root: the first declaration found wins.
		if operators == nil && d.Operators != nil {
			operators = d.Operators
		}
		if defaultOp == "" {
			defaultOp = d.DefaultOperator
		}
	}

	if defaultOp == "" {
		return nil
	}
	for _, op := range operators {
		if op == defaultOp {
			return nil
		}
	}
	return fmt.Errorf("%w: %q default operator %q is not among its operators", ErrInvalidPropertyType, id, defaultOp)
}

// Resolve returns the merged definition for id, falling back to the text
// type for unknown ids. The same id always yields the same reference.
func (p *PropertyTypes) Resolve(id string) *PropertyType {
	if t, ok := p.cache.Get(id); ok {
		return t
	}
	def, ok := p.defs[id]
	if !ok {
		return p.Resolve(FallbackType)
	}

	p.resolutions.Add(1)
	var resolved *PropertyType
	if def.Extends == "" {
		resolved = merge(&PropertyType{}, def)
	} else {
		resolved = merge(p.Resolve(def.Extends), def)
	}
	return p.cache.Put(id, resolved)
}

// Has reports whether id is a defined type.
func (p *PropertyTypes) Has(id string) bool {
	_, ok := p.defs[id]
	return ok
}

// IDs returns type ids in definition order.
func (p *PropertyTypes) IDs() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// merge builds a new resolved type from a parent and an override; the
// parent is left untouched.
func merge(parent *PropertyType, def PropertyTypeDef) *PropertyType {
	out := &PropertyType{
		ID:              def.ID,
		Icon:            parent.Icon,
		Operators:       append([]string(nil), parent.Operators...),
		DefaultOperator: parent.DefaultOperator,
		DefaultValue:    parent.DefaultValue,
		Input:           parent.Input,
		FilterInput:     parent.FilterInput,
		Display:         parent.Display,
		Lineage:         append(append([]string(nil), parent.Lineage...), def.ID),
	}
	if def.Icon != "" {
		out.Icon = def.Icon
	}
	if def.Operators != nil {
		out.Operators = append([]string(nil), def.Operators...)
	}
	if def.DefaultOperator != "" {
		out.DefaultOperator = def.DefaultOperator
	}
	if def.HasDefault {
		out.DefaultValue = def.DefaultValue
	}
	if def.Input != "" {
		out.Input = def.Input
	}
	if def.FilterInput != "" {
		out.FilterInput = def.FilterInput
	}
	if def.Display != "" {
		out.Display = def.Display
	}
	return out
}

func ops(groups ...filter.Category) []string {
	return filter.InCategory(groups...)
}

// BuiltinPropertyTypes returns the stock field kinds.
func BuiltinPropertyTypes() []PropertyTypeDef {
	return []PropertyTypeDef{
		{
			ID:              "boolean",
			Icon:            "i-tabler-toggle-left",
			Operators:       ops(filter.CategoryEquality),
			DefaultOperator: filter.Equals,
			DefaultValue:    false,
			HasDefault:      true,
			Input:           RenderBoolean,
			FilterInput:     RenderFilterBoolean,
			Display:         RenderBoolean,
		},
		{
			ID:              "text",
			Icon:            "i-tabler-abc",
			Operators:       ops(filter.CategoryEquality, filter.CategoryText, filter.CategoryArray, filter.CategoryEmpty),
			DefaultOperator: filter.Contains,
			DefaultValue:    "",
			HasDefault:      true,
			Input:           RenderText,
			FilterInput:     RenderFilterText,
			Display:         RenderText,
		},
		{
			ID:              "code",
			Icon:            "i-tabler-hash",
			Extends:         "text",
			Operators:       ops(filter.CategoryEquality, filter.CategoryArray, filter.CategoryEmpty),
			DefaultOperator: filter.Equals,
			Input:           RenderCode,
			Display:         RenderCode,
		},
		{
			ID:      "email",
			Icon:    "i-tabler-mail",
			Extends: "text",
			Display: RenderEmail,
		},
		{
			ID:      "phone",
			Icon:    "i-tabler-phone",
			Extends: "text",
			Input:   RenderPhone,
			Display: RenderPhone,
		},
		{
			ID:              "number",
			Icon:            "i-tabler-123",
			Operators:       ops(filter.CategoryEquality, filter.CategoryComparison, filter.CategoryRange, filter.CategoryArray, filter.CategoryEmpty),
			DefaultOperator: filter.Equals,
			HasDefault:      true,
			Input:           RenderNumber,
			FilterInput:     RenderFilterNumber,
			Display:         RenderNumber,
		},
		{
			ID:      "currency",
			Icon:    "i-tabler-currency-dollar",
			Extends: "number",
			Input:   RenderCurrency,
			Display: RenderCurrency,
		},
		{
			ID:              "date",
			Icon:            "i-tabler-calendar",
			Operators:       ops(filter.CategoryEquality, filter.CategoryComparison, filter.CategoryRange, filter.CategoryEmpty),
			DefaultOperator: filter.Equals,
			HasDefault:      true,
			Input:           RenderDate,
			FilterInput:     RenderFilterDate,
			Display:         RenderDate,
		},
		{
			ID:      "datetime",
			Extends: "date",
			Input:   RenderDateTime,
		},
		{
			ID:      "time",
			Icon:    "i-tabler-clock",
			Extends: "date",
			Input:   RenderTime,
		},
		{
			ID:              "select",
			Icon:            "i-tabler-list",
			Operators:       ops(filter.CategoryEquality, filter.CategoryArray, filter.CategoryEmpty),
			DefaultOperator: filter.Equals,
			HasDefault:      true,
			Input:           RenderSelect,
			FilterInput:     RenderFilterSelect,
			Display:         RenderSelect,
		},
		{
			ID:              "relation",
			Icon:            "i-tabler-link",
			Operators:       ops(filter.CategoryRelation),
			DefaultOperator: filter.Some,
			DefaultValue:    map[string]any{"property": nil, "operator": nil, "value": nil},
			HasDefault:      true,
			Input:           RenderRelation,
			Display:         RenderRelation,
		},
	}
}

// NewBuiltinPropertyTypes returns a registry of the stock field kinds.
func NewBuiltinPropertyTypes(opts ...TypesOption) *PropertyTypes {
	p, err := NewPropertyTypes(BuiltinPropertyTypes(), opts...)
	if err != nil {
		panic(fmt.Sprintf("builtin property types: %v", err))
	}
	return p
}
