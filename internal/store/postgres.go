package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/repository"
)

// Pool is satisfied by *pgxpool.Pool.
type Pool interface {
	repository.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

func inTx(ctx context.Context, pool Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

func translatePgError(err error, onUnique error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgForeignKeyViolation:
		return apperr.ErrUserNotFound
	case pgUniqueViolation:
		if onUnique != nil {
			return onUnique
		}
	}
	return err
}
