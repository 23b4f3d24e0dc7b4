package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"metadesk-backend/internal/metadata"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }
func (d *PostgresDialect) NeedsBoolFix() bool { return false }

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) ColumnType(pt *metadata.PropertyType) string {
	switch columnKind(pt) {
	case "boolean":
		return "BOOLEAN"
	case "number":
		return "NUMERIC"
	case "datetime":
		return "TIMESTAMPTZ"
	case "time":
		return "TIME"
	case "date":
		return "DATE"
	default:
		return "TEXT"
	}
}

func (d *PostgresDialect) TableExists(ctx context.Context, q Querier, tableName string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = $1 AND table_schema = 'public')`,
		tableName,
	).Scan(&exists)
	return exists, err
}

func (d *PostgresDialect) GetColumns(ctx context.Context, q Querier, tableName string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = $1 AND table_schema = 'public'`,
		tableName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		cols[name] = dataType
	}
	return cols, rows.Err()
}

func (d *PostgresDialect) MatchExpr(column string, pb ParamBuilder, match Match, value string, insensitive bool) string {
	op := "LIKE"
	if insensitive {
		op = "ILIKE"
	}
	return fmt.Sprintf(`%s %s %s ESCAPE '\'`, column, op, pb.Add(likePattern(match, value)))
}

func (d *PostgresDialect) LimitOffset(pb ParamBuilder, take, skip int) string {
	var parts []string
	if take > 0 {
		parts = append(parts, "LIMIT "+pb.Add(take))
	}
	if skip > 0 {
		parts = append(parts, "OFFSET "+pb.Add(skip))
	}
	return strings.Join(parts, " ")
}

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	// the code is not always reachable through database/sql wrapping
	errStr := err.Error()
	if strings.Contains(errStr, "23505") || strings.Contains(errStr, "duplicate key") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}
