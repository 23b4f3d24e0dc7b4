package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type Migrator struct {
	models *Models
	logger *zap.Logger
}

func NewMigrator(models *Models, logger *zap.Logger) *Migrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Migrator{models: models, logger: logger}
}

// Migrate ensures every entity table matches the metadata. Missing tables
// are created and missing columns added; nothing is dropped.
func (m *Migrator) Migrate(ctx context.Context) error {
	for _, t := range m.models.schema.ordered {
		if err := m.migrateTable(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) migrateTable(ctx context.Context, t *table) error {
	d := m.models.dialect()
	exists, err := d.TableExists(ctx, m.models.q, t.name)
	if err != nil {
		return fmt.Errorf("check table exists: %w", err)
	}
	if !exists {
		return m.createTable(ctx, t)
	}
	return m.alterTable(ctx, t)
}

func (m *Migrator) createTable(ctx context.Context, t *table) error {
	cols := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		cols = append(cols, m.columnDef(c))
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", quoteIdent(t.name), strings.Join(cols, ",\n  "))
	if _, err := m.models.q.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", t.name, err)
	}
	m.logger.Info("created table", zap.String("entity", t.entity), zap.String("table", t.name))
	return m.createIndexes(ctx, t)
}

func (m *Migrator) alterTable(ctx context.Context, t *table) error {
	existing, err := m.models.dialect().GetColumns(ctx, m.models.q, t.name)
	if err != nil {
		return fmt.Errorf("get columns for %s: %w", t.name, err)
	}

	for _, c := range t.columns {
		if _, ok := existing[c.name]; ok {
			continue
		}
		// existing rows have no value, so added columns stay nullable
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
			quoteIdent(t.name), quoteIdent(c.name), m.models.dialect().ColumnType(c.typ))
		if _, err := m.models.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", t.name, c.name, err)
		}
		m.logger.Info("added column", zap.String("table", t.name), zap.String("column", c.name))
	}
	return m.createIndexes(ctx, t)
}

func (m *Migrator) columnDef(c *column) string {
	col := quoteIdent(c.name) + " " + m.models.dialect().ColumnType(c.typ)
	if c.name == "id" {
		return col + " PRIMARY KEY"
	}
	if c.required {
		col += " NOT NULL"
	}
	return col
}

// createIndexes indexes the foreign key columns of t that relation joins
// use, whichever entity declares the relation.
func (m *Migrator) createIndexes(ctx context.Context, t *table) error {
	for _, col := range m.foreignKeys(t) {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			quoteIdent("idx_"+t.name+"_"+col), quoteIdent(t.name), quoteIdent(col))
		if _, err := m.models.q.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", t.name, col, err)
		}
	}
	return nil
}

func (m *Migrator) foreignKeys(t *table) []string {
	seen := map[string]bool{}
	var cols []string
	for _, s := range m.models.schema.ordered {
		for _, l := range s.links {
			owner, col := s, l.sourceCol
			if l.many {
				owner, col = l.target, l.targetCol
			}
			if owner != t || col == "id" || seen[col] {
				continue
			}
			seen[col] = true
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}
