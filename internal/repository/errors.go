package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"rfqportal/internal/apperr"
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translate maps storage errors on reads and writes to apperr kinds. A
// foreign key failure here means the row references something missing.
func translate(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.New(apperr.KindNotFound, "%s not found", entity)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.New(apperr.KindConflict, "%s already exists (%s)", entity, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return apperr.New(apperr.KindInvalid, "%s references a record that does not exist (%s)", entity, pgErr.ConstraintName)
		}
	}
	return err
}

// translateDelete is translate for deletes, where a foreign key failure means
// other rows still reference the target.
func translateDelete(err error, entity string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return apperr.New(apperr.KindConflict, "%s is still referenced by other records", entity)
	}
	return translate(err, entity)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func deleted(res *gorm.DB, entity string) error {
	if res.Error != nil {
		return translateDelete(res.Error, entity)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "%s not found", entity)
	}
	return nil
}
