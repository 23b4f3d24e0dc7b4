package metadata

import "metadesk-backend/internal/filter"

// RendererKind names a presentation component. The set is closed; unknown
// kinds resolve to the text renderer.
type RendererKind string

const (
	RenderText     RendererKind = "text"
	RenderCode     RendererKind = "code"
	RenderEmail    RendererKind = "email"
	RenderPhone    RendererKind = "phone"
	RenderNumber   RendererKind = "number"
	RenderCurrency RendererKind = "currency"
	RenderBoolean  RendererKind = "boolean"
	RenderDate     RendererKind = "date"
	RenderDateTime RendererKind = "datetime"
	RenderTime     RendererKind = "time"
	RenderSelect   RendererKind = "select"
	RenderRelation RendererKind = "relation"

	RenderFilterText    RendererKind = "filter-text"
	RenderFilterNumber  RendererKind = "filter-number"
	RenderFilterBoolean RendererKind = "filter-boolean"
	RenderFilterDate    RendererKind = "filter-date"
	RenderFilterSelect  RendererKind = "filter-select"
)

// Renderer tells a client which component to mount for a property and with
// which props.
type Renderer struct {
	Kind      RendererKind   `json:"kind"`
	Component string         `json:"component"`
	Props     map[string]any `json:"props,omitempty"`
}

type rendererFunc func(p *Property, operator string) *Renderer

func component(kind RendererKind, name string) rendererFunc {
	return func(p *Property, _ string) *Renderer {
		r := &Renderer{Kind: kind, Component: name}
		if p != nil && p.Mask != "" {
			r.Props = map[string]any{"mask": p.Mask}
		}
		return r
	}
}

func withOptions(kind RendererKind, name string) rendererFunc {
	return func(p *Property, _ string) *Renderer {
		r := &Renderer{Kind: kind, Component: name}
		if p != nil && len(p.Options) > 0 {
			r.Props = map[string]any{"options": p.Options}
		}
		return r
	}
}

func relationRenderer(kind RendererKind, name string) rendererFunc {
	return func(p *Property, _ string) *Renderer {
		r := &Renderer{Kind: kind, Component: name}
		if p != nil && p.Entity != "" {
			r.Props = map[string]any{"entity": p.Entity}
		}
		return r
	}
}

var inputRenderers = map[RendererKind]rendererFunc{
	RenderText:     component(RenderText, "InputText"),
	RenderCode:     component(RenderCode, "InputCode"),
	RenderEmail:    component(RenderEmail, "InputText"),
	RenderPhone:    component(RenderPhone, "InputPhone"),
	RenderNumber:   component(RenderNumber, "InputText"),
	RenderCurrency: component(RenderCurrency, "InputCurrency"),
	RenderBoolean:  component(RenderBoolean, "InputBoolean"),
	RenderDate:     component(RenderDate, "InputDate"),
	RenderDateTime: component(RenderDateTime, "InputDateTime"),
	RenderTime:     component(RenderTime, "InputTime"),
	RenderSelect:   withOptions(RenderSelect, "InputSelect"),
	RenderRelation: relationRenderer(RenderRelation, "InputRelation"),
}

var displayRenderers = map[RendererKind]rendererFunc{
	RenderText:     component(RenderText, "DisplayText"),
	RenderCode:     component(RenderCode, "DisplayCode"),
	RenderEmail:    component(RenderEmail, "DisplayEmail"),
	RenderPhone:    component(RenderPhone, "DisplayPhone"),
	RenderNumber:   component(RenderNumber, "DisplayNumber"),
	RenderCurrency: component(RenderCurrency, "DisplayCurrency"),
	RenderBoolean:  component(RenderBoolean, "DisplayBoolean"),
	RenderDate:     component(RenderDate, "DisplayDate"),
	RenderDateTime: component(RenderDateTime, "DisplayDate"),
	RenderTime:     component(RenderTime, "DisplayDate"),
	RenderSelect:   withOptions(RenderSelect, "DisplaySelect"),
	RenderRelation: relationRenderer(RenderRelation, "DisplayRelation"),
}

var filterRenderers = map[RendererKind]rendererFunc{
	RenderFilterText:    component(RenderFilterText, "InputText"),
	RenderFilterBoolean: component(RenderFilterBoolean, "InputBoolean"),
	RenderFilterNumber: func(p *Property, op string) *Renderer {
		r := &Renderer{Kind: RenderFilterNumber, Component: "InputText", Props: map[string]any{}}
		switch {
		case filter.IsArrayOperator(op):
			r.Props["multiple"] = true
		case filter.IsRangeOperator(op):
			r.Props["range"] = true
		}
		return r
	},
	RenderFilterDate: func(p *Property, op string) *Renderer {
		r := &Renderer{Kind: RenderFilterDate, Component: "InputDate"}
		if filter.IsRangeOperator(op) {
			r.Props = map[string]any{"range": true}
		}
		return r
	},
	RenderFilterSelect: func(p *Property, op string) *Renderer {
		r := withOptions(RenderFilterSelect, "InputSelect")(p, op)
		if filter.IsArrayOperator(op) {
			if r.Props == nil {
				r.Props = map[string]any{}
			}
			r.Props["multiple"] = true
		}
		return r
	},
}

func resolveRenderer(table map[RendererKind]rendererFunc, fallback RendererKind, kind RendererKind, p *Property, op string) *Renderer {
	fn, ok := table[kind]
	if !ok {
		fn = table[fallback]
	}
	return fn(p, op)
}

// ResolveInput returns the edit component for a property.
func ResolveInput(p *Property) *Renderer {
	return resolveRenderer(inputRenderers, RenderText, p.PropertyType.Input, p, "")
}

// ResolveDisplay returns the read-only component for a property.
func ResolveDisplay(p *Property) *Renderer {
	return resolveRenderer(displayRenderers, RenderText, p.PropertyType.Display, p, "")
}

// ResolveFilterInput returns the component used to enter a filter value
// for op. Operators that take no value and relation properties have none.
func ResolveFilterInput(p *Property, op string) *Renderer {
	if filter.IsEmptyOperator(op) || p.PropertyType.IsA("relation") {
		return nil
	}
	return resolveRenderer(filterRenderers, RenderFilterText, p.PropertyType.FilterInput, p, op)
}
