package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"license-tracker/apperror"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps driver errors onto the application's error kinds.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFound("%s", what)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return apperror.NewConflict("duplicate value for %s (%s)", what, pqErr.Constraint)
		case pqForeignKeyViolation:
			return apperror.Field(what, fmt.Sprintf("references a record that does not exist (%s)", pqErr.Constraint))
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}
