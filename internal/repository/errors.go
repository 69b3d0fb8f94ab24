package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate signals a unique constraint violation.
	ErrDuplicate = errors.New("repository: duplicate record")
	// ErrInvalidReference signals a foreign key pointing at a missing row.
	ErrInvalidReference = errors.New("repository: invalid reference")
)

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case IsUniqueViolation(err):
		return errors.Join(ErrDuplicate, err)
	case isForeignKeyViolation(err):
		return errors.Join(ErrInvalidReference, err)
	}
	return err
}

// IsUniqueViolation detects uniqueness violations across sqlite, postgres and mysql.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate entry") ||
		strings.Contains(lower, "duplicate key")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == 1452 || myErr.Number == 1451) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}
