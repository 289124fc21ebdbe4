package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/shared"
)

func TestConstraintErrorUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "invoices_number_key"}
	err := ConstraintError(fmt.Errorf("billing: insert invoice: %w", pgErr))
	require.ErrorIs(t, err, shared.ErrReferentialConflict)
	require.Contains(t, err.Error(), "invoices_number_key")
}

func TestConstraintErrorForeignKeyViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", ConstraintName: "invoices_client_id_fkey"}
	err := ConstraintError(pgErr)
	require.ErrorIs(t, err, shared.ErrReferentialConflict)
}

func TestConstraintErrorPassthrough(t *testing.T) {
	plain := errors.New("connection refused")
	require.Equal(t, plain, ConstraintError(plain))

	pgErr := &pgconn.PgError{Code: "40001"}
	require.Equal(t, error(pgErr), ConstraintError(pgErr))

	require.NoError(t, ConstraintError(nil))
}
