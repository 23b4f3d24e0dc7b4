package store

import (
	"context"
	"fmt"
	"strings"

	"metadesk-backend/internal/metadata"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }
func (d *SQLiteDialect) NeedsBoolFix() bool { return true }

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) ColumnType(pt *metadata.PropertyType) string {
	switch columnKind(pt) {
	case "boolean":
		return "INTEGER"
	case "number":
		return "REAL"
	default:
		// dates and times are stored as ISO-8601 text
		return "TEXT"
	}
}

func (d *SQLiteDialect) TableExists(ctx context.Context, q Querier, tableName string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?1",
		tableName,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *SQLiteDialect) GetColumns(ctx context.Context, q Querier, tableName string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dfltValue any
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = colType
	}
	return cols, rows.Err()
}

// MatchExpr uses LIKE for insensitive matches (SQLite LIKE ignores ASCII
// case) and instr/substr comparisons otherwise.
func (d *SQLiteDialect) MatchExpr(column string, pb ParamBuilder, match Match, value string, insensitive bool) string {
	if insensitive {
		return fmt.Sprintf(`LOWER(%s) LIKE LOWER(%s) ESCAPE '\'`, column, pb.Add(likePattern(match, value)))
	}
	ph := pb.Add(value)
	switch match {
	case MatchStartsWith:
		return fmt.Sprintf("substr(%s, 1, length(%s)) = %s", column, ph, ph)
	case MatchEndsWith:
		return fmt.Sprintf("substr(%s, -length(%s)) = %s", column, ph, ph)
	default:
		return fmt.Sprintf("instr(%s, %s) > 0", column, ph)
	}
}

func (d *SQLiteDialect) LimitOffset(pb ParamBuilder, take, skip int) string {
	if take <= 0 && skip <= 0 {
		return ""
	}
	limit := "-1"
	if take > 0 {
		limit = pb.Add(take)
	}
	if skip <= 0 {
		return "LIMIT " + limit
	}
	return fmt.Sprintf("LIMIT %s OFFSET %s", limit, pb.Add(skip))
}

func (d *SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "constraint failed: UNIQUE") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}
