// Package store is the gorm-backed repository for accounts, the catalog and
// the review graph. Referential actions are applied explicitly here; the
// foreign key constraints declared on the models are only a backstop.
package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/database"
)

// pgSerializationFailure is reported when a SERIALIZABLE transaction loses
// a race with a concurrent one.
const pgSerializationFailure = "40001"

type Store struct {
	db        *gorm.DB
	txOptions *sql.TxOptions
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, txOptions: database.TxOptions(db)}
}

// Transaction runs fn against a Store bound to one database transaction. fn
// must use the Store it is given, not the outer one.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	var opts []*sql.TxOptions
	if s.txOptions != nil {
		opts = append(opts, s.txOptions)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, txOptions: s.txOptions})
	}, opts...)
	return translate(err, "record")
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return database.Ping(s.db.WithContext(ctx))
}

// Page selects a window of a list. Number starts at 1; a zero Size means
// no limit.
type Page struct {
	Number int
	Size   int
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	if p.Size <= 0 {
		return db
	}
	number := p.Number
	if number < 1 {
		number = 1
	}
	return db.Offset((number - 1) * p.Size).Limit(p.Size)
}

// translate maps storage errors onto the apperr taxonomy. Errors that are
// already classified pass through unchanged.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFoundf("%s not found", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(err, apperr.CodeConflict, what+" already exists")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.Wrap(err, apperr.CodeValidation, what+" references a missing record")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgSerializationFailure {
		return apperr.Wrap(err, apperr.CodeConflict, "concurrent update, please retry")
	}

	return apperr.Wrap(err, apperr.CodeInternal, "database error")
}

func likePattern(s string) string {
	return "%" + s + "%"
}
