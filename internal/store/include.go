package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"metadesk-backend/internal/query"
)

// selectionPlan is what one level of a selection needs from the database.
type selectionPlan struct {
	fetch     []string
	hidden    []string // fetched for joins only, stripped before returning
	relations []relationPlan
}

type relationPlan struct {
	link *link
	plan *selectionPlan
}

// planSelection resolves a selection against t. Keys map to true for a
// column or a whole relation, or to {select: {...}} for a relation subset.
func planSelection(t *table, sel query.Selection) (*selectionPlan, error) {
	p := &selectionPlan{}
	if len(sel) == 0 {
		p.fetch = t.columnNames()
		return p, nil
	}

	requested := map[string]bool{}
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch v := sel[key].(type) {
		case bool:
			if !v {
				continue
			}
			if _, ok := t.column(key); ok {
				requested[key] = true
				continue
			}
			l, ok := t.links[key]
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.entity, key)
			}
			nested, err := planSelection(l.target, nil)
			if err != nil {
				return nil, err
			}
			p.relations = append(p.relations, relationPlan{link: l, plan: nested})
		default:
			l, ok := t.links[key]
			if !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.entity, key)
			}
			wrapper, ok := asSelection(v)
			if !ok {
				return nil, fmt.Errorf("%w: select.%s must be true or {select: {...}}", ErrInvalidQuery, key)
			}
			inner, _ := asSelection(wrapper["select"])
			nested, err := planSelection(l.target, inner)
			if err != nil {
				return nil, err
			}
			p.relations = append(p.relations, relationPlan{link: l, plan: nested})
		}
	}

	requested["id"] = true
	for _, c := range t.columns {
		if requested[c.name] {
			p.fetch = append(p.fetch, c.name)
		}
	}
	for _, r := range p.relations {
		p.need(r.link.sourceCol)
	}
	return p, nil
}

// need fetches col without returning it unless it was requested.
func (p *selectionPlan) need(col string) {
	for _, c := range p.fetch {
		if c == col {
			return
		}
	}
	p.fetch = append(p.fetch, col)
	p.hidden = append(p.hidden, col)
}

func asSelection(v any) (query.Selection, bool) {
	switch s := v.(type) {
	case query.Selection:
		return s, true
	case map[string]any:
		return s, true
	}
	return nil, false
}

// finish normalizes rows of t and attaches the relations of plan, loading
// each relation with one batched query per level.
func (m *Models) finish(ctx context.Context, t *table, plan *selectionPlan, rows []map[string]any) error {
	if m.dialect().NeedsBoolFix() {
		NormalizeBooleans(rows, t.boolNames)
	}
	for _, r := range plan.relations {
		if err := m.loadRelation(ctx, r, rows); err != nil {
			return err
		}
	}
	for _, row := range rows {
		for _, col := range plan.hidden {
			delete(row, col)
		}
	}
	return nil
}

func (m *Models) loadRelation(ctx context.Context, r relationPlan, rows []map[string]any) error {
	l := r.link
	keys := collectValues(rows, l.sourceCol)

	grouped := map[string][]map[string]any{}
	if len(keys) > 0 {
		child := *r.plan
		child.fetch = append([]string(nil), r.plan.fetch...)
		child.hidden = append([]string(nil), r.plan.hidden...)
		child.need(l.targetCol)

		b := newSQLBuilder(m.dialect())
		alias := b.alias()
		cols := make([]string, len(child.fetch))
		for i, c := range child.fetch {
			cols[i] = qualify(alias, c)
		}
		sqlStr := fmt.Sprintf("SELECT %s FROM %s %s WHERE %s ORDER BY %s",
			strings.Join(cols, ", "), quoteIdent(l.target.name), alias,
			inExpr(qualify(alias, l.targetCol), b.pb, keys, false), qualify(alias, "id"))

		related, err := QueryRows(ctx, m.q, sqlStr, b.pb.Params()...)
		if err != nil {
			return fmt.Errorf("load %s: %w", l.name, err)
		}
		for _, rel := range related {
			k := fmt.Sprint(rel[l.targetCol])
			grouped[k] = append(grouped[k], rel)
		}
		if err := m.finish(ctx, l.target, &child, related); err != nil {
			return err
		}
	}

	for _, row := range rows {
		matches := grouped[fmt.Sprint(row[l.sourceCol])]
		if row[l.sourceCol] == nil {
			matches = nil
		}
		switch {
		case l.many && matches == nil:
			row[l.name] = []map[string]any{}
		case l.many:
			row[l.name] = matches
		case len(matches) > 0:
			row[l.name] = matches[0]
		default:
			row[l.name] = nil
		}
	}
	return nil
}

func collectValues(rows []map[string]any, field string) []any {
	seen := make(map[string]bool)
	var values []any
	for _, row := range rows {
		v := row[field]
		if v == nil {
			continue
		}
		s := fmt.Sprint(v)
		if !seen[s] {
			seen[s] = true
			values = append(values, v)
		}
	}
	return values
}
