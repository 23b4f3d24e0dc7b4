package metadata

import (
	"sort"
	"strings"
)

// Relation kinds.
const (
	HasOne  = "hasOne"
	HasMany = "hasMany"
)

// Property is an entity property merged with its resolved type.
type Property struct {
	Key             string         `json:"key"`
	Label           string         `json:"label"`
	Type            string         `json:"type"`
	PropertyType    *PropertyType  `json:"-"`
	Icon            string         `json:"icon,omitempty"`
	Operators       []string       `json:"operators"`
	DefaultOperator string         `json:"defaultOperator,omitempty"`
	DefaultValue    any            `json:"defaultValue,omitempty"`
	Searchable      bool           `json:"searchable"`
	Sortable        bool           `json:"sortable"`
	Filterable      bool           `json:"filterable"`
	Required        bool           `json:"required,omitempty"`
	Mask            string         `json:"mask,omitempty"`
	Options         []Option       `json:"options,omitempty"`
	Entity          string         `json:"entity,omitempty"`
	Input           *Renderer      `json:"input,omitempty"`
	Display         *Renderer      `json:"display,omitempty"`

	// Relation is set on properties flattened from a hasOne relation.
	Relation string `json:"relation,omitempty"`
}

// Nested reports whether the property was flattened from a related entity.
func (p *Property) Nested() bool { return p.Relation != "" }

// Relation is a resolved hasOne/hasMany link.
type Relation struct {
	Name   string `json:"name"`
	Entity string `json:"entity"`
	Kind   string `json:"kind"`
	Label  string `json:"label"`
}

// Action is an action definition with its localized label.
type Action struct {
	ActionDef
	Label string `json:"label"`
}

// ResolvedEntity is an entity definition merged with resolved property
// types and labels for one locale. Values are shared through the registry
// cache and must be treated as read-only.
type ResolvedEntity struct {
	Name          string          `json:"name"`
	Label         string          `json:"label"`
	Locale        string          `json:"locale"`
	Slug          string          `json:"slug"`
	Table         string          `json:"-"`
	Display       Display         `json:"display"`
	Properties    []*Property     `json:"properties"`
	Relations     []Relation      `json:"relations"`
	Views         map[string]View `json:"views"`
	Form          *Form           `json:"form,omitempty"`
	Actions       []Action        `json:"actions"`
	ItemActions   []Action        `json:"itemActions"`
	BatchActions  []Action        `json:"batchActions"`
	AIDescription string          `json:"aiDescription,omitempty"`

	byKey      map[string]*Property
	conditions *conditionSet
}

// Property returns the property with the given key, including flattened
// relation.field keys.
func (e *ResolvedEntity) Property(key string) (*Property, bool) {
	p, ok := e.byKey[key]
	return p, ok
}

// PropertyKeys returns every property key, flattened keys last.
func (e *ResolvedEntity) PropertyKeys() []string {
	keys := make([]string, 0, len(e.Properties))
	for _, p := range e.Properties {
		keys = append(keys, p.Key)
	}
	return keys
}

// OwnPropertyKeys returns the keys declared directly on the entity.
func (e *ResolvedEntity) OwnPropertyKeys() []string {
	keys := make([]string, 0, len(e.Properties))
	for _, p := range e.Properties {
		if !p.Nested() {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// SearchFields returns the properties matched by free-text search: those
// flagged searchable, or every text and code property when none is.
func (e *ResolvedEntity) SearchFields() []string {
	var flagged, fallback []string
	for _, p := range e.Properties {
		if p.Nested() {
			continue
		}
		if p.Searchable {
			flagged = append(flagged, p.Key)
		}
		if p.Type == "text" || p.Type == "code" {
			fallback = append(fallback, p.Key)
		}
	}
	if len(flagged) > 0 {
		return flagged
	}
	return fallback
}

// Relation returns the hasOne or hasMany relation with the given name.
func (e *ResolvedEntity) Relation(name string) (Relation, bool) {
	for _, r := range e.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// AllowedKeys returns the top-level keys a query against this entity may
// reference: own property keys and relation names.
func (e *ResolvedEntity) AllowedKeys() []string {
	keys := e.OwnPropertyKeys()
	for _, r := range e.Relations {
		keys = append(keys, r.Name)
	}
	return keys
}

// ActiveView returns the view to use for a request: the named view when it
// exists, else the entity's display view, else "default".
func (e *ResolvedEntity) ActiveView(name string) (string, View) {
	for _, candidate := range []string{name, e.Display.View, DefaultView} {
		if candidate == "" {
			continue
		}
		if v, ok := e.Views[candidate]; ok {
			return candidate, v
		}
	}
	if name != "" {
		return name, View{}
	}
	return DefaultView, View{}
}

// ViewNames returns view names sorted alphabetically.
func (e *ResolvedEntity) ViewNames() []string {
	names := make([]string, 0, len(e.Views))
	for n := range e.Views {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Path returns the client route of the entity's list screen.
func (e *ResolvedEntity) Path() string {
	return "/app/" + e.Slug
}

// VisibleItemActions returns the item actions whose condition holds for
// the record. Actions without a condition are always visible; conditions
// that fail to evaluate hide the action.
func (e *ResolvedEntity) VisibleItemActions(record map[string]any) []Action {
	out := make([]Action, 0, len(e.ItemActions))
	for _, a := range e.ItemActions {
		if strings.TrimSpace(a.When) == "" || e.conditions.eval(a.When, record) {
			out = append(out, a)
		}
	}
	return out
}
