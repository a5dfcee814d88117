package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrVersionConflict is returned when a requested version is not exactly
	// one past the current version of its chain.
	ErrVersionConflict = errors.New("version conflict")
	ErrInvalidObjectID = errors.New("object id is required")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
