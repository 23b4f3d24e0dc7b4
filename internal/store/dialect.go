package store

import (
	"context"
	"fmt"
	"strings"

	"metadesk-backend/internal/metadata"
)

// Dialect abstracts database-specific SQL generation and behavior.
type Dialect interface {
	// Name returns "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name ("pgx" or "sqlite").
	DriverName() string

	// NewParamBuilder creates a dialect-aware parameter builder.
	NewParamBuilder() ParamBuilder

	// ColumnType maps a resolved property type to the database DDL type.
	ColumnType(pt *metadata.PropertyType) string

	// TableExists checks whether a table exists.
	TableExists(ctx context.Context, q Querier, tableName string) (bool, error)

	// GetColumns returns existing column names and types for a table.
	GetColumns(ctx context.Context, q Querier, tableName string) (map[string]string, error)

	// MatchExpr builds a pattern match (contains, startsWith, endsWith).
	MatchExpr(column string, pb ParamBuilder, match Match, value string, insensitive bool) string

	// LimitOffset returns the pagination suffix; take 0 means no limit.
	LimitOffset(pb ParamBuilder, take, skip int) string

	// MapError inspects a driver error and returns a well-known sentinel error if applicable.
	MapError(err error) error

	// NeedsBoolFix returns true if boolean columns come back as integers (SQLite).
	NeedsBoolFix() bool
}

// ParamBuilder accumulates query parameters and generates dialect-specific placeholders.
type ParamBuilder interface {
	// Add appends a value and returns the placeholder string.
	Add(v any) string

	// Params returns all accumulated parameter values.
	Params() []any

	// Count returns the number of parameters added so far.
	Count() int
}

// Match is the kind of text pattern a MatchExpr tests.
type Match int

const (
	MatchContains Match = iota
	MatchStartsWith
	MatchEndsWith
)

// NewDialect creates a Dialect for the given driver name ("postgres" or "sqlite").
func NewDialect(driver string) Dialect {
	switch driver {
	case "sqlite":
		return &SQLiteDialect{}
	default:
		return &PostgresDialect{}
	}
}

// quoteIdent double-quotes an identifier; both dialects accept it.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// inExpr expands values into one placeholder each.
func inExpr(column string, pb ParamBuilder, values []any, negate bool) string {
	if len(values) == 0 {
		if negate {
			return "1=1"
		}
		return "1=0"
	}
	phs := make([]string, len(values))
	for i, v := range values {
		phs[i] = pb.Add(v)
	}
	op := "IN"
	if negate {
		op = "NOT IN"
	}
	return fmt.Sprintf("%s %s (%s)", column, op, strings.Join(phs, ", "))
}

// likePattern escapes LIKE wildcards with a backslash and wraps value for match.
func likePattern(match Match, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
	switch match {
	case MatchStartsWith:
		return escaped + "%"
	case MatchEndsWith:
		return "%" + escaped
	default:
		return "%" + escaped + "%"
	}
}

// columnKind reduces a resolved property type to the storage class the
// dialects map to DDL.
func columnKind(pt *metadata.PropertyType) string {
	switch {
	case pt == nil:
		return "text"
	case pt.IsA("boolean"):
		return "boolean"
	case pt.IsA("number"):
		return "number"
	case pt.IsA("datetime"):
		return "datetime"
	case pt.IsA("time"):
		return "time"
	case pt.IsA("date"):
		return "date"
	default:
		return "text"
	}
}

// --- PostgreSQL ParamBuilder ---

type pgParamBuilder struct {
	params []any
	n      int
}

func (p *pgParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("$%d", p.n)
}

func (p *pgParamBuilder) Params() []any { return p.params }
func (p *pgParamBuilder) Count() int    { return p.n }

// --- SQLite ParamBuilder ---

type sqliteParamBuilder struct {
	params []any
	n      int
}

func (p *sqliteParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("?%d", p.n)
}

func (p *sqliteParamBuilder) Params() []any { return p.params }
func (p *sqliteParamBuilder) Count() int    { return p.n }
