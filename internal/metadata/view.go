package metadata

import (
	"gopkg.in/yaml.v3"

	"metadesk-backend/internal/filter"
	"metadesk-backend/internal/query"
)

// DefaultView is used when neither the request nor the entity names one.
const DefaultView = "default"

// View is a named list configuration of an entity.
type View struct {
	Type       string    `yaml:"type" json:"type,omitempty"`
	Label      string    `yaml:"-" json:"label,omitempty"`
	Properties []string  `yaml:"properties" json:"properties,omitempty"`
	UI         ViewUI    `yaml:"ui" json:"ui"`
	Query      ViewQuery `yaml:"query" json:"query"`
}

type ViewUI struct {
	Pinned Pinned `yaml:"pinned" json:"pinned"`
}

// Pinned lists columns fixed to either side of a table view.
type Pinned struct {
	Left  []string `yaml:"left" json:"left,omitempty"`
	Right []string `yaml:"right" json:"right,omitempty"`
}

// ViewQuery holds the view's initial sort and filters.
type ViewQuery struct {
	Sort   []query.SortItem `yaml:"sort" json:"sort,omitempty"`
	Filter []filter.Clause  `yaml:"-" json:"filter,omitempty"`
}

type yamlClause struct {
	Property string `yaml:"property"`
	Operator string `yaml:"operator"`
	Value    any    `yaml:"value"`
}

func (q *ViewQuery) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Sort   []query.SortItem `yaml:"sort"`
		Filter []yamlClause     `yaml:"filter"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	q.Sort = raw.Sort
	q.Filter = make([]filter.Clause, 0, len(raw.Filter))
	for _, c := range raw.Filter {
		kind := filter.KindScalar
		if op, ok := filter.Lookup(c.Operator); ok {
			kind = op.ValueKind()
		}
		q.Filter = append(q.Filter, filter.Clause{
			Property: c.Property,
			Operator: c.Operator,
			Value:    filter.Coerce(kind, c.Value),
		})
	}
	return nil
}

// ViewOverride is the user-editable subset of a view that is persisted.
// Nil fields leave the base view untouched; an empty list clears it.
type ViewOverride struct {
	Type       string      `json:"type,omitempty"`
	Properties []string    `json:"properties"`
	UI         *OverrideUI `json:"ui,omitempty"`
}

type OverrideUI struct {
	Pinned *PinnedOverride `json:"pinned,omitempty"`
}

// PinnedOverride replaces each side independently.
type PinnedOverride struct {
	Left  []string `json:"left"`
	Right []string `json:"right"`
}

// MergeView layers an override on top of a view. Fields are replaced one
// by one; pinned columns merge per side. Neither input is modified.
func MergeView(base View, o ViewOverride) View {
	out := base
	out.Properties = cloneStrings(base.Properties)
	out.UI.Pinned = Pinned{
		Left:  cloneStrings(base.UI.Pinned.Left),
		Right: cloneStrings(base.UI.Pinned.Right),
	}
	out.Query.Sort = append([]query.SortItem(nil), base.Query.Sort...)
	out.Query.Filter = append([]filter.Clause(nil), base.Query.Filter...)

	if o.Type != "" {
		out.Type = o.Type
	}
	if o.Properties != nil {
		out.Properties = cloneStrings(o.Properties)
	}
	if o.UI != nil && o.UI.Pinned != nil {
		if o.UI.Pinned.Left != nil {
			out.UI.Pinned.Left = cloneStrings(o.UI.Pinned.Left)
		}
		if o.UI.Pinned.Right != nil {
			out.UI.Pinned.Right = cloneStrings(o.UI.Pinned.Right)
		}
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
