package repository

import (
	"errors"
	"strings"

	"bboard/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// uniqueViolation reports whether err is a unique constraint failure and,
// when the driver says so, which column caused it. Postgres reports the
// index name (idx_users_email) and sqlite the column (users.email).
func uniqueViolation(err error) (column string, ok bool) {
	if err == nil {
		return "", false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		name := pgErr.ConstraintName
		if i := strings.LastIndex(name, "_"); i >= 0 {
			name = name[i+1:]
		}
		return name, true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", true
	}
	msg := err.Error()
	if _, rest, found := strings.Cut(msg, "UNIQUE constraint failed: "); found {
		if _, col, found := strings.Cut(rest, "."); found {
			col, _, _ = strings.Cut(col, ",")
			return strings.TrimSpace(col), true
		}
		return "", true
	}
	lower := strings.ToLower(msg)
	return "", strings.Contains(lower, "duplicate key") || strings.Contains(lower, pgUniqueViolation)
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func notFoundOr(err error, resource string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
