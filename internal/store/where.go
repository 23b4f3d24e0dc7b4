package store

import (
	"fmt"
	"sort"
	"strings"

	"metadesk-backend/internal/query"
)

// sqlBuilder renders conditions, orderings and selections into
// parameterized SQL. Tables are aliased t0, t1, ... in order of use.
type sqlBuilder struct {
	dialect Dialect
	pb      ParamBuilder
	aliases int
}

func newSQLBuilder(d Dialect) *sqlBuilder {
	return &sqlBuilder{dialect: d, pb: d.NewParamBuilder()}
}

func (b *sqlBuilder) alias() string {
	a := fmt.Sprintf("t%d", b.aliases)
	b.aliases++
	return a
}

func qualify(alias, col string) string {
	return alias + "." + quoteIdent(col)
}

var relationOps = map[string]bool{"some": true, "every": true, "none": true, "is": true, "isNot": true}

// where renders cond against table t aliased as alias. An empty condition
// renders as "".
func (b *sqlBuilder) where(t *table, alias string, cond map[string]any) (string, error) {
	keys := make([]string, 0, len(cond))
	for k := range cond {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		part, err := b.entry(t, alias, key, cond[key])
		if err != nil {
			return "", err
		}
		if part != "" {
			parts = append(parts, part)
		}
	}
	return joinParts(parts, " AND "), nil
}

func (b *sqlBuilder) entry(t *table, alias, key string, value any) (string, error) {
	switch key {
	case query.And, query.Or:
		conds, err := conditionList(value)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrInvalidQuery, key, err)
		}
		if key == query.Or {
			for _, c := range conds {
				if len(c) == 0 {
					// an empty member matches everything
					return "", nil
				}
			}
			if len(conds) == 0 {
				return "1=0", nil
			}
		}
		var parts []string
		for _, c := range conds {
			part, err := b.where(t, alias, c)
			if err != nil {
				return "", err
			}
			if part != "" {
				parts = append(parts, part)
			}
		}
		if key == query.Or {
			return joinParts(parts, " OR "), nil
		}
		return joinParts(parts, " AND "), nil
	case query.Not:
		conds, err := conditionList(value)
		if err != nil {
			return "", fmt.Errorf("%w: NOT: %w", ErrInvalidQuery, err)
		}
		var parts []string
		for _, c := range conds {
			part, err := b.where(t, alias, c)
			if err != nil {
				return "", err
			}
			if part != "" {
				parts = append(parts, "NOT "+part)
			}
		}
		return joinParts(parts, " AND "), nil
	}

	if rel, field, dotted := strings.Cut(key, "."); dotted {
		// flattened hasOne properties: "businessUnit.name"
		return b.entry(t, alias, rel, map[string]any{"is": map[string]any{field: value}})
	}

	if l, ok := t.links[key]; ok {
		if ops, isMap := asMap(value); isMap && hasRelationOp(ops) {
			return b.relation(t, alias, l, ops)
		}
		if _, isColumn := t.column(key); !isColumn {
			ops, isMap := asMap(value)
			if !isMap || l.many {
				return "", fmt.Errorf("%w: relation %s needs some/every/none/is/isNot", ErrInvalidQuery, key)
			}
			return b.relation(t, alias, l, map[string]any{"is": ops})
		}
	}

	if _, ok := t.column(key); !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, t.entity, key)
	}
	return b.field(qualify(alias, key), value)
}

// field renders the operators applied to one column.
func (b *sqlBuilder) field(col string, value any) (string, error) {
	ops, ok := asMap(value)
	if !ok {
		return b.equals(col, value), nil
	}

	insensitive := ops["mode"] == "insensitive"
	keys := make([]string, 0, len(ops))
	for k := range ops {
		if k != "mode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var parts []string
	for _, op := range keys {
		v := ops[op]
		switch op {
		case "equals":
			parts = append(parts, b.equals(col, v))
		case "not":
			if v == nil {
				parts = append(parts, col+" IS NOT NULL")
				continue
			}
			if nested, isMap := asMap(v); isMap {
				if _, ok := nested["mode"]; !ok && insensitive {
					nested = withMode(nested)
				}
				inner, err := b.field(col, nested)
				if err != nil {
					return "", err
				}
				if inner != "" {
					parts = append(parts, "NOT ("+inner+")")
				}
				continue
			}
			parts = append(parts, fmt.Sprintf("%s <> %s", col, b.pb.Add(v)))
		case "in", "notIn":
			items, ok := asList(v)
			if !ok {
				return "", fmt.Errorf("%w: %s expects a list", ErrInvalidQuery, op)
			}
			parts = append(parts, inExpr(col, b.pb, items, op == "notIn"))
		case "lt", "lte", "gt", "gte":
			parts = append(parts, fmt.Sprintf("%s %s %s", col, comparisons[op], b.pb.Add(v)))
		case "between":
			items, ok := asList(v)
			if !ok || len(items) != 2 {
				return "", fmt.Errorf("%w: between expects [low, high]", ErrInvalidQuery)
			}
			parts = append(parts, fmt.Sprintf("%s BETWEEN %s AND %s", col, b.pb.Add(items[0]), b.pb.Add(items[1])))
		case "contains", "startsWith", "endsWith":
			s, ok := v.(string)
			if !ok {
				return "", fmt.Errorf("%w: %s expects a string", ErrInvalidQuery, op)
			}
			parts = append(parts, b.dialect.MatchExpr(col, b.pb, matches[op], s, insensitive))
		default:
			return "", fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, op)
		}
	}
	return joinParts(parts, " AND "), nil
}

var comparisons = map[string]string{"lt": "<", "lte": "<=", "gt": ">", "gte": ">="}

var matches = map[string]Match{"contains": MatchContains, "startsWith": MatchStartsWith, "endsWith": MatchEndsWith}

func (b *sqlBuilder) equals(col string, v any) string {
	if v == nil {
		return col + " IS NULL"
	}
	return fmt.Sprintf("%s = %s", col, b.pb.Add(v))
}

// relation renders some/every/none/is/isNot as correlated EXISTS subqueries.
func (b *sqlBuilder) relation(t *table, alias string, l *link, ops map[string]any) (string, error) {
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, op := range keys {
		if !relationOps[op] {
			return "", fmt.Errorf("%w: unknown relation operator %q on %s", ErrInvalidQuery, op, l.name)
		}
		v := ops[op]
		if v == nil && (op == "is" || op == "isNot") {
			// {is: null} tests for a missing related record
			exists, err := b.exists(alias, l, nil)
			if err != nil {
				return "", err
			}
			if op == "is" {
				parts = append(parts, "NOT "+exists)
			} else {
				parts = append(parts, exists)
			}
			continue
		}
		sub, ok := asMap(v)
		if !ok {
			return "", fmt.Errorf("%w: %s.%s expects a condition", ErrInvalidQuery, l.name, op)
		}

		switch op {
		case "some", "is":
			exists, err := b.exists(alias, l, sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, exists)
		case "none", "isNot":
			exists, err := b.exists(alias, l, sub)
			if err != nil {
				return "", err
			}
			parts = append(parts, "NOT "+exists)
		case "every":
			exists, err := b.exists(alias, l, map[string]any{query.Not: sub})
			if err != nil {
				return "", err
			}
			parts = append(parts, "NOT "+exists)
		}
	}
	return joinParts(parts, " AND "), nil
}

func (b *sqlBuilder) exists(alias string, l *link, sub map[string]any) (string, error) {
	inner := b.alias()
	conds := []string{fmt.Sprintf("%s = %s", qualify(inner, l.targetCol), qualify(alias, l.sourceCol))}
	if len(sub) > 0 {
		w, err := b.where(l.target, inner, sub)
		if err != nil {
			return "", err
		}
		if w != "" {
			conds = append(conds, w)
		}
	}
	return fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s WHERE %s)",
		quoteIdent(l.target.name), inner, strings.Join(conds, " AND ")), nil
}

// orderBy renders sort keys. Values are "asc"/"desc", or a nested ordering
// over a to-one relation, or {_count: dir} over a to-many relation.
func (b *sqlBuilder) orderBy(t *table, alias string, items []query.OrderBy) (string, error) {
	var parts []string
	for _, item := range items {
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			rendered, err := b.orderTerm(t, alias, key, item[key])
			if err != nil {
				return "", err
			}
			parts = append(parts, rendered...)
		}
	}
	return strings.Join(parts, ", "), nil
}

func (b *sqlBuilder) orderTerm(t *table, alias, key string, value any) ([]string, error) {
	if rel, field, dotted := strings.Cut(key, "."); dotted {
		return b.orderTerm(t, alias, rel, map[string]any{field: value})
	}

	if dir, ok := value.(string); ok {
		if _, ok := t.column(key); !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.entity, key)
		}
		sqlDir, err := direction(dir)
		if err != nil {
			return nil, err
		}
		return []string{qualify(alias, key) + " " + sqlDir}, nil
	}

	l, ok := t.links[key]
	nested, isMap := asMap(value)
	if !ok || !isMap {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.entity, key)
	}

	inner := b.alias()
	join := fmt.Sprintf("%s = %s", qualify(inner, l.targetCol), qualify(alias, l.sourceCol))
	if l.many {
		dir, ok := nested["_count"].(string)
		if !ok || len(nested) != 1 {
			return nil, fmt.Errorf("%w: to-many relation %s orders by _count only", ErrInvalidQuery, key)
		}
		sqlDir, err := direction(dir)
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("(SELECT COUNT(*) FROM %s %s WHERE %s) %s",
			quoteIdent(l.target.name), inner, join, sqlDir)}, nil
	}

	var terms []string
	fields := make([]string, 0, len(nested))
	for f := range nested {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		dir, ok := nested[f].(string)
		if !ok {
			return nil, fmt.Errorf("%w: nested ordering deeper than one relation on %s", ErrInvalidQuery, key)
		}
		if _, ok := l.target.column(f); !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, l.target.entity, f)
		}
		sqlDir, err := direction(dir)
		if err != nil {
			return nil, err
		}
		terms = append(terms, fmt.Sprintf("(SELECT %s FROM %s %s WHERE %s) %s",
			qualify(inner, f), quoteIdent(l.target.name), inner, join, sqlDir))
	}
	return terms, nil
}

func direction(dir string) (string, error) {
	switch strings.ToLower(dir) {
	case query.Asc:
		return "ASC", nil
	case query.Desc:
		return "DESC", nil
	default:
		return "", fmt.Errorf("%w: sort direction %q", ErrInvalidQuery, dir)
	}
}

func hasRelationOp(ops map[string]any) bool {
	for k := range ops {
		if relationOps[k] {
			return true
		}
	}
	return false
}

func withMode(ops map[string]any) map[string]any {
	out := make(map[string]any, len(ops)+1)
	for k, v := range ops {
		out[k] = v
	}
	out["mode"] = "insensitive"
	return out
}

// asMap accepts the map shapes a condition may arrive in: compiled
// query.Condition values and decoded JSON objects.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case query.Condition:
		return m, true
	case query.OrderBy:
		return m, true
	}
	return nil, false
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// conditionList accepts one condition or a list of conditions.
func conditionList(v any) ([]map[string]any, error) {
	if m, ok := asMap(v); ok {
		return []map[string]any{m}, nil
	}
	switch l := v.(type) {
	case []query.Condition:
		out := make([]map[string]any, len(l))
		for i, c := range l {
			out[i] = c
		}
		return out, nil
	case []map[string]any:
		return l, nil
	case []any:
		out := make([]map[string]any, 0, len(l))
		for _, item := range l {
			m, ok := asMap(item)
			if !ok {
				return nil, fmt.Errorf("expected a condition, got %T", item)
			}
			out = append(out, m)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a condition or a list of conditions, got %T", v)
}

func joinParts(parts []string, sep string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, sep) + ")"
	}
}
