package query

import (
	"strings"

	"metadesk-backend/internal/filter"
)

// Compiler turns descriptors into backend queries. The zero value matches
// case-sensitively.
type Compiler struct {
	// CaseInsensitive adds mode "insensitive" to search and text predicates.
	CaseInsensitive bool
}

var defaultCompiler Compiler

// BuildFilterWhere compiles filter clauses with the default compiler.
func BuildFilterWhere(filters []filter.Clause) Condition {
	return defaultCompiler.BuildFilterWhere(filters)
}

// BuildSearchWhere compiles a search term with the default compiler.
func BuildSearchWhere(term string, fields []string) Condition {
	return defaultCompiler.BuildSearchWhere(term, fields)
}

// Compile compiles a descriptor with the default compiler.
func Compile(d Descriptor, searchFields []string) BackendQuery {
	return defaultCompiler.Compile(d, searchFields)
}

// BuildFilterWhere ANDs the conditions of every active clause, in input
// order. Clauses with unknown operators, mismatched value shapes or empty
// values (outside the empty category) are skipped.
func (c Compiler) BuildFilterWhere(filters []filter.Clause) Condition {
	conditions := make([]Condition, 0, len(filters))
	for _, clause := range filters {
		if clause.Property == "" || !clause.Active() {
			continue
		}
		build, ok := predicates[clause.Operator]
		if !ok {
			continue
		}
		if cond := build(clause.Property, clause.Value, c.CaseInsensitive); cond != nil {
			conditions = append(conditions, cond)
		}
	}
	return and(conditions)
}

// BuildSearchWhere ORs a "field contains term" condition per field.
func (c Compiler) BuildSearchWhere(term string, fields []string) Condition {
	if term == "" || len(fields) == 0 {
		return nil
	}
	conditions := make([]Condition, 0, len(fields))
	for _, field := range fields {
		if field == "" {
			continue
		}
		op := map[string]any{"contains": term}
		if c.CaseInsensitive {
			op["mode"] = "insensitive"
		}
		conditions = append(conditions, Condition{field: op})
	}
	if len(conditions) == 0 {
		return nil
	}
	return Condition{Or: conditions}
}

// BuildSelect maps flat fields to {field: true} and dotted fields to nested
// relation selects, merging fields of the same relation.
func BuildSelect(fields []string) Selection {
	if len(fields) == 0 {
		return nil
	}
	result := Selection{}
	for _, field := range fields {
		if field == "" {
			continue
		}
		addSelect(result, field)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func addSelect(into Selection, field string) {
	relation, rest, dotted := strings.Cut(field, ".")
	if !dotted {
		if _, nested := into[field].(Selection); !nested {
			into[field] = true
		}
		return
	}

	wrapper, ok := into[relation].(Selection)
	if !ok {
		wrapper = Selection{"select": Selection{}}
		into[relation] = wrapper
	}
	addSelect(wrapper["select"].(Selection), rest)
}

// Compile builds skip/take/orderBy/where/select. Page and size are clamped
// to at least 1; sort items with a blank property are dropped and unknown
// directions fall back to asc.
func (c Compiler) Compile(d Descriptor, searchFields []string) BackendQuery {
	page := d.Page
	if page < 1 {
		page = 1
	}
	size := d.Size
	if size < 1 {
		size = 1
	}

	orderBy := make([]OrderBy, 0, len(d.Sort))
	for _, item := range d.Sort {
		if item.Property == "" {
			continue
		}
		dir := item.Direction
		if !ValidDirection(dir) {
			dir = Asc
		}
		orderBy = append(orderBy, OrderBy{item.Property: dir})
	}

	return BackendQuery{
		Skip:    (page - 1) * size,
		Take:    size,
		OrderBy: orderBy,
		Where:   c.Where(d, searchFields),
		Select:  BuildSelect(d.Properties),
	}
}

// Where merges the search and filter conditions of a descriptor; it is the
// where used for counting the full result set.
func (c Compiler) Where(d Descriptor, searchFields []string) Condition {
	return MergeConditions(
		c.BuildSearchWhere(d.Search, searchFields),
		c.BuildFilterWhere(d.Filter),
	)
}
