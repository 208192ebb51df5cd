package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// withTx runs fn inside a transaction, committing only when fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// trapNoRowsErr maps "no rows" to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// Queries are written with `?` placeholders and rebound for the driver in use.

func get(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, ext, dest, ext.Rebind(query), args...)
}

func selectAll(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.SelectContext(ctx, ext, dest, ext.Rebind(query), args...)
}

func exec(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (sql.Result, error) {
	return ext.ExecContext(ctx, ext.Rebind(query), args...)
}

// insertID runs an INSERT and returns the id the database assigned.
func insertID(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (int, error) {
	var id int
	err := get(ctx, ext, &id, query+" RETURNING id", args...)
	return id, err
}

func exists(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (bool, error) {
	var ok bool
	err := get(ctx, ext, &ok, "SELECT EXISTS ("+query+")", args...)
	return ok, err
}

// selectIn expands the IN (?) clause of query for ids.
func selectIn(ctx context.Context, ext sqlx.ExtContext, dest interface{}, query string, ids interface{}, args ...interface{}) error {
	q, params, err := sqlx.In(query, append([]interface{}{ids}, args...)...)
	if err != nil {
		return err
	}
	return selectAll(ctx, ext, dest, q, params...)
}

func execIn(ctx context.Context, ext sqlx.ExtContext, query string, ids interface{}) (int64, error) {
	q, params, err := sqlx.In(query, ids)
	if err != nil {
		return 0, err
	}
	res, err := exec(ctx, ext, q, params...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
