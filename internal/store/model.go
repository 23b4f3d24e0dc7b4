package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"metadesk-backend/internal/metadata"
	"metadesk-backend/internal/query"
)

// Models hands out per-entity model clients over one store.
type Models struct {
	store    *Store
	q        Querier
	registry *metadata.Registry
	schema   *Schema
}

// NewModels derives the storage schema from reg.
func NewModels(s *Store, reg *metadata.Registry) (*Models, error) {
	schema, err := NewSchema(reg)
	if err != nil {
		return nil, err
	}
	return &Models{store: s, q: s.DB, registry: reg, schema: schema}, nil
}

// Model returns the client of an entity, matched like the registry does.
func (m *Models) Model(entity string) (*Model, error) {
	name, ok := m.registry.ResolveName(entity)
	if !ok {
		return nil, fmt.Errorf("%w: %q", metadata.ErrEntityNotFound, entity)
	}
	t, _ := m.schema.table(name)
	return &Model{models: m, table: t}, nil
}

// InTx runs fn with models bound to one transaction, committing when fn
// returns nil.
func (m *Models) InTx(ctx context.Context, fn func(tx *Models) error) error {
	tx, err := m.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	bound := *m
	bound.q = tx
	if err := fn(&bound); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (m *Models) dialect() Dialect { return m.store.Dialect }

// Model reads and writes the records of one entity.
type Model struct {
	models *Models
	table  *table
}

// Entity returns the canonical entity name.
func (m *Model) Entity() string { return m.table.entity }

// FindMany returns the records matching q, never nil. A nil selection
// returns every column and no relations; id is always returned.
func (m *Model) FindMany(ctx context.Context, q query.BackendQuery) ([]map[string]any, error) {
	plan, err := planSelection(m.table, q.Select)
	if err != nil {
		return nil, err
	}

	b := newSQLBuilder(m.models.dialect())
	alias := b.alias()
	where, err := b.where(m.table, alias, q.Where)
	if err != nil {
		return nil, err
	}
	order, err := b.orderBy(m.table, alias, q.OrderBy)
	if err != nil {
		return nil, err
	}

	cols := make([]string, len(plan.fetch))
	for i, c := range plan.fetch {
		cols[i] = qualify(alias, c)
	}
	sqlStr := fmt.Sprintf("SELECT %s FROM %s %s", strings.Join(cols, ", "), quoteIdent(m.table.name), alias)
	if where != "" {
		sqlStr += " WHERE " + where
	}
	if order != "" {
		sqlStr += " ORDER BY " + order
	}
	if page := m.models.dialect().LimitOffset(b.pb, q.Take, q.Skip); page != "" {
		sqlStr += " " + page
	}

	rows, err := QueryRows(ctx, m.models.q, sqlStr, b.pb.Params()...)
	if err != nil {
		return nil, m.models.dialect().MapError(err)
	}
	if err := m.models.finish(ctx, m.table, plan, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindUnique returns the record with the given id, or ErrNotFound.
func (m *Model) FindUnique(ctx context.Context, id any, sel query.Selection) (map[string]any, error) {
	rows, err := m.FindMany(ctx, query.BackendQuery{
		Take:   1,
		Where:  query.Condition{"id": map[string]any{"equals": id}},
		Select: sel,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Count returns the number of records matching where.
func (m *Model) Count(ctx context.Context, where query.Condition) (int64, error) {
	b := newSQLBuilder(m.models.dialect())
	alias := b.alias()
	w, err := b.where(m.table, alias, where)
	if err != nil {
		return 0, err
	}
	sqlStr := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", quoteIdent(m.table.name), alias)
	if w != "" {
		sqlStr += " WHERE " + w
	}

	var n int64
	if err := m.models.q.QueryRowContext(ctx, sqlStr, b.pb.Params()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", m.table.entity, err)
	}
	return n, nil
}

// aggregateFuncs lists the aggregate result keys in output order.
var aggregateFuncs = []struct {
	key string
	fn  string
	get func(query.AggregateQuery) query.AggregateFields
}{
	{"_count", "COUNT", func(a query.AggregateQuery) query.AggregateFields { return a.Count }},
	{"_sum", "SUM", func(a query.AggregateQuery) query.AggregateFields { return a.Sum }},
	{"_avg", "AVG", func(a query.AggregateQuery) query.AggregateFields { return a.Avg }},
	{"_min", "MIN", func(a query.AggregateQuery) query.AggregateFields { return a.Min }},
	{"_max", "MAX", func(a query.AggregateQuery) query.AggregateFields { return a.Max }},
}

// Aggregate summarizes every record matching a.Where:
//
//	{"_count": {"_all": 7, "name": 6}, "_sum": {"amount": 12.5}}
//
// A Total-only count comes back bare, as {"_count": 7}. Total folds into
// "_all" once per-field counts are requested too.
func (m *Model) Aggregate(ctx context.Context, a query.AggregateQuery) (map[string]any, error) {
	result := map[string]any{}
	if a.Empty() {
		return result, nil
	}

	b := newSQLBuilder(m.models.dialect())
	alias := b.alias()

	type target struct{ group, field string }
	var exprs []string
	var targets []target
	switch {
	case a.Total && !a.CountAll && len(a.Count) == 0:
		exprs = append(exprs, "COUNT(*)")
		targets = append(targets, target{"_count", ""})
	case a.Total || a.CountAll:
		exprs = append(exprs, "COUNT(*)")
		targets = append(targets, target{"_count", "_all"})
	}
	for _, agg := range aggregateFuncs {
		fields := agg.get(a)
		names := make([]string, 0, len(fields))
		for f, on := range fields {
			if on {
				names = append(names, f)
			}
		}
		sort.Strings(names)
		for _, f := range names {
			if _, ok := m.table.column(f); !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.table.entity, f)
			}
			exprs = append(exprs, fmt.Sprintf("%s(%s)", agg.fn, qualify(alias, f)))
			targets = append(targets, target{agg.key, f})
		}
	}

	w, err := b.where(m.table, alias, a.Where)
	if err != nil {
		return nil, err
	}
	sqlStr := fmt.Sprintf("SELECT %s FROM %s %s", strings.Join(exprs, ", "), quoteIdent(m.table.name), alias)
	if w != "" {
		sqlStr += " WHERE " + w
	}

	values := make([]any, len(exprs))
	ptrs := make([]any, len(exprs))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := m.models.q.QueryRowContext(ctx, sqlStr, b.pb.Params()...).Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", m.table.entity, err)
	}

	for i, t := range targets {
		if t.field == "" {
			result[t.group] = numeric(values[i])
			continue
		}
		group, ok := result[t.group].(map[string]any)
		if !ok {
			group = map[string]any{}
			result[t.group] = group
		}
		v := values[i]
		if c, ok := m.table.column(t.field); t.group == "_count" || t.group == "_sum" || t.group == "_avg" || (ok && columnKind(c.typ) == "number") {
			v = numeric(v)
		} else {
			v = normalizeValue(v)
		}
		group[t.field] = v
	}
	return result, nil
}

// numeric turns NUMERIC values reported as text into float64.
func numeric(v any) any {
	switch val := v.(type) {
	case []byte:
		return numeric(string(val))
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return val
	default:
		return val
	}
}

// Create inserts a record and returns it as stored. A missing id is
// generated.
func (m *Model) Create(ctx context.Context, data map[string]any) (map[string]any, error) {
	record := make(map[string]any, len(data)+1)
	for k, v := range data {
		record[k] = v
	}
	if id, ok := record["id"]; !ok || id == nil || id == "" {
		record["id"] = uuid.NewString()
	}
	if err := m.checkRequired(record); err != nil {
		return nil, err
	}

	cols, err := m.writableColumns(record)
	if err != nil {
		return nil, err
	}
	pb := m.models.dialect().NewParamBuilder()
	quoted := make([]string, len(cols))
	phs := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
		phs[i] = pb.Add(record[c])
	}
	sqlStr := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(m.table.name), strings.Join(quoted, ", "), strings.Join(phs, ", "))
	if _, err := Exec(ctx, m.models.q, sqlStr, pb.Params()...); err != nil {
		return nil, m.models.dialect().MapError(err)
	}
	return m.FindUnique(ctx, record["id"], nil)
}

// Update sets data on every record matching where and returns the number
// of records changed.
func (m *Model) Update(ctx context.Context, where query.Condition, data map[string]any) (int64, error) {
	if _, ok := data["id"]; ok {
		return 0, fmt.Errorf("%w: id cannot be updated", ErrInvalidQuery)
	}
	cols, err := m.writableColumns(data)
	if err != nil {
		return 0, err
	}
	if len(cols) == 0 {
		return 0, fmt.Errorf("%w: nothing to update", ErrInvalidQuery)
	}

	b := newSQLBuilder(m.models.dialect())
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = %s", quoteIdent(c), b.pb.Add(data[c]))
	}
	// UPDATE cannot alias its target portably, so conditions reference
	// the table by name.
	w, err := b.where(m.table, quoteIdent(m.table.name), where)
	if err != nil {
		return 0, err
	}
	sqlStr := fmt.Sprintf("UPDATE %s SET %s", quoteIdent(m.table.name), strings.Join(sets, ", "))
	if w != "" {
		sqlStr += " WHERE " + w
	}
	n, err := Exec(ctx, m.models.q, sqlStr, b.pb.Params()...)
	if err != nil {
		return 0, m.models.dialect().MapError(err)
	}
	return n, nil
}

// Delete removes every record matching where and returns how many were
// removed.
func (m *Model) Delete(ctx context.Context, where query.Condition) (int64, error) {
	b := newSQLBuilder(m.models.dialect())
	w, err := b.where(m.table, quoteIdent(m.table.name), where)
	if err != nil {
		return 0, err
	}
	sqlStr := fmt.Sprintf("DELETE FROM %s", quoteIdent(m.table.name))
	if w != "" {
		sqlStr += " WHERE " + w
	}
	n, err := Exec(ctx, m.models.q, sqlStr, b.pb.Params()...)
	if err != nil {
		return 0, m.models.dialect().MapError(err)
	}
	return n, nil
}

// writableColumns returns the keys of data in column order, rejecting keys
// that are not columns.
func (m *Model) writableColumns(data map[string]any) ([]string, error) {
	var unknown []string
	for k := range data {
		if _, ok := m.table.column(k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.table.entity, strings.Join(unknown, ", "))
	}
	var cols []string
	for _, c := range m.table.columns {
		if _, ok := data[c.name]; ok {
			cols = append(cols, c.name)
		}
	}
	return cols, nil
}

func (m *Model) checkRequired(record map[string]any) error {
	var missing []string
	for _, c := range m.table.columns {
		if !c.required {
			continue
		}
		if v, ok := record[c.name]; !ok || v == nil || v == "" {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: required: %s", ErrInvalidQuery, strings.Join(missing, ", "))
	}
	return nil
}
