package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresMapError(t *testing.T) {
	d := &PostgresDialect{}

	t.Run("unique violation keeps the driver error", func(t *testing.T) {
		pgErr := &pgconn.PgError{
			Code:           "23505",
			Message:        `duplicate key value violates unique constraint "business_unit_code_key"`,
			ConstraintName: "business_unit_code_key",
		}
		mapped := d.MapError(fmt.Errorf("exec: %w", pgErr))

		require.ErrorIs(t, mapped, ErrUniqueViolation)
		var extracted *pgconn.PgError
		require.True(t, errors.As(mapped, &extracted))
		assert.Equal(t, "business_unit_code_key", extracted.ConstraintName)
	})

	t.Run("other errors pass through", func(t *testing.T) {
		err := errors.New("connection reset")
		assert.Same(t, err, d.MapError(err))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, d.MapError(nil))
	})
}

func TestSQLiteMapError(t *testing.T) {
	d := &SQLiteDialect{}
	mapped := d.MapError(errors.New("constraint failed: UNIQUE constraint failed: businessUnit.code (2067)"))
	assert.ErrorIs(t, mapped, ErrUniqueViolation)

	err := errors.New("no such table: nope")
	assert.Same(t, err, d.MapError(err))
}

func TestNewDialect(t *testing.T) {
	assert.Equal(t, "pgx", NewDialect("postgres").DriverName())
	assert.Equal(t, "sqlite", NewDialect("sqlite").DriverName())
}
