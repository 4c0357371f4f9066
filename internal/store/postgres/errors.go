package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"clinicsched/backend/internal/store"
)

const (
	pgExclusionViolation  = "23P01"
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError turns constraint violations into store sentinels. The exclusion constraints are the
// backstop for overlaps the validators could not see.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgExclusionViolation:
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case "appointments_number_key":
			return store.ErrDuplicateNumber
		case "locations_room_key":
			return store.ErrDuplicateRoom
		}
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
	}
	return err
}
