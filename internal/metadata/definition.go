package metadata

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// EntityDef is a statically authored entity definition, as read from an
// entity YAML file.
type EntityDef struct {
	Name          string          `yaml:"name"`
	Table         string          `yaml:"table"`
	Display       Display         `yaml:"display"`
	Properties    PropertyDefs    `yaml:"properties"`
	HasOne        []string        `yaml:"hasOne"`
	HasMany       []string        `yaml:"hasMany"`
	Views         map[string]View `yaml:"views"`
	Form          *Form           `yaml:"form"`
	Actions       ActionDefs      `yaml:"actions"`
	ItemActions   ActionDefs      `yaml:"itemActions"`
	BatchActions  ActionDefs      `yaml:"batchActions"`
	AIDescription string          `yaml:"aiDescription"`
}

// TableName returns the backing table, defaulting to the entity name.
func (e *EntityDef) TableName() string {
	if e.Table != "" {
		return e.Table
	}
	return e.Name
}

// Display names the property used as a record's title and the default view.
type Display struct {
	Property string `yaml:"property" json:"property,omitempty"`
	View     string `yaml:"view" json:"view,omitempty"`
}

// PropertyDef is an entity-declared property; zero fields inherit from the
// property type.
type PropertyDef struct {
	Key        string   `yaml:"-"`
	Type       string   `yaml:"type"`
	Searchable bool     `yaml:"searchable"`
	Sortable   *bool    `yaml:"sortable"`
	Filterable *bool    `yaml:"filterable"`
	Required   bool     `yaml:"required"`
	Mask       string   `yaml:"mask"`
	Options    []Option `yaml:"options"`
	Entity     string   `yaml:"entity"`
}

// Option is one choice of a select property.
type Option struct {
	Value any    `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// PropertyDefs keeps properties in authored order.
type PropertyDefs []PropertyDef

func (p *PropertyDefs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: properties must be a mapping", node.Line)
	}
	out := make(PropertyDefs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var def PropertyDef
		if err := node.Content[i+1].Decode(&def); err != nil {
			return fmt.Errorf("property %q: %w", node.Content[i].Value, err)
		}
		def.Key = node.Content[i].Value
		out = append(out, def)
	}
	*p = out
	return nil
}

// Get returns the property declared under key.
func (p PropertyDefs) Get(key string) (PropertyDef, bool) {
	for _, d := range p {
		if d.Key == key {
			return d, true
		}
	}
	return PropertyDef{}, false
}

// ActionDef describes an entity, item or batch action. When is an
// expression evaluated against a record; item actions whose condition is
// false are hidden for that record.
type ActionDef struct {
	Key     string `yaml:"-" json:"key"`
	Icon    string `yaml:"icon" json:"icon,omitempty"`
	To      string `yaml:"to" json:"to,omitempty"`
	Execute string `yaml:"execute" json:"execute,omitempty"`
	Color   string `yaml:"color" json:"color,omitempty"`
	When    string `yaml:"when" json:"when,omitempty"`
}

// ActionDefs keeps actions in authored order. Both a mapping and a list of
// single-key mappings are accepted.
type ActionDefs []ActionDef

func (a *ActionDefs) UnmarshalYAML(node *yaml.Node) error {
	var out ActionDefs
	switch node.Kind {
	case yaml.MappingNode:
		defs, err := decodeActions(node)
		if err != nil {
			return err
		}
		out = defs
	case yaml.SequenceNode:
		for _, item := range node.Content {
			if item.Kind != yaml.MappingNode {
				return fmt.Errorf("line %d: action entries must be mappings", item.Line)
			}
			defs, err := decodeActions(item)
			if err != nil {
				return err
			}
			out = append(out, defs...)
		}
	default:
		return fmt.Errorf("line %d: actions must be a mapping or a list", node.Line)
	}
	*a = out
	return nil
}

func decodeActions(node *yaml.Node) (ActionDefs, error) {
	out := make(ActionDefs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var def ActionDef
		if err := node.Content[i+1].Decode(&def); err != nil {
			return nil, fmt.Errorf("action %q: %w", node.Content[i].Value, err)
		}
		def.Key = node.Content[i].Value
		out = append(out, def)
	}
	return out, nil
}

// Form lays out the edit form of an entity.
type Form struct {
	Fieldsets []Fieldset `yaml:"fieldsets" json:"fieldsets"`
}

type Fieldset struct {
	Name   string      `yaml:"name" json:"name"`
	Label  string      `yaml:"-" json:"label,omitempty"`
	Class  string      `yaml:"class" json:"class,omitempty"`
	Fields []FormField `yaml:"fields" json:"fields"`
}

type FormField struct {
	Property string `yaml:"property" json:"property"`
	Class    string `yaml:"class" json:"class,omitempty"`
}
