// Package repository implements all database queries for the booking system.
// It uses pgx directly (no ORM). Every repository runs its statements on the
// transaction carried in the context when there is one, so services can
// compose several repository calls into one atomic unit with WithTx.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// withTx runs fn inside a transaction. Nested calls join the outer
// transaction instead of opening a new one.
func withTx(ctx context.Context, db *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func conn(ctx context.Context, db *pgxpool.Pool) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

// Tx exposes withTx to services that coordinate several repositories.
type Tx struct {
	db *pgxpool.Pool
}

// NewTx constructs a Tx over db.
func NewTx(db *pgxpool.Pool) *Tx {
	return &Tx{db: db}
}

// WithTx runs fn in a transaction shared by every repository call that
// receives the callback's context.
func (t *Tx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, t.db, fn)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == pgerrcode.ForeignKeyViolation
}

// isInvalidID reports a malformed uuid literal; lookups treat it as a miss.
func isInvalidID(err error) bool {
	return pgCode(err) == pgerrcode.InvalidTextRepresentation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
