package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ledgerline/ledgerline/internal/shared"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// ConstraintError maps Postgres unique and foreign key violations onto
// shared.ErrReferentialConflict. Any other error passes through unchanged.
func ConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("duplicate row (%s): %w", pgErr.ConstraintName, shared.ErrReferentialConflict)
	case codeForeignKeyViolation:
		return fmt.Errorf("constraint %s: %w", pgErr.ConstraintName, shared.ErrReferentialConflict)
	}
	return err
}
