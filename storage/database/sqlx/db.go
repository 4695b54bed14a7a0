// Package sqlxrepos implements the repositories on Postgres. Row locks are taken with SELECT ... FOR UPDATE
// within the transaction carried by the context.
package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
)

const uniqueViolation = "23505"

type (
	DB struct {
		db        *sqlx.DB
		txTimeout time.Duration
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil)

func NewDB(db *sql.DB, conf *core.Config) *DB {
	return &DB{db: sqlx.NewDb(db, "postgres"), txTimeout: conf.Database.TxTimeout}
}

// ext returns the running transaction, or the pool outside of transactions.
func (db *DB) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.db
}

func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	if db.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.txTimeout)
		defer cancel()
	}
	tx, err := db.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// trapErr maps "no rows" to a *core.NotFoundError and unique violations to a *core.ConflictError.
func trapErr(err error, entity, id, msg string) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return core.NewNotFoundError(entity, id)
	}
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return core.NewConflictError(entity, id, "already exists ("+pqErr.Constraint+")")
	}
	return errors.Wrap(err, msg)
}
