package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation. Check-then-insert flows race under concurrency; the constraint
// is the authoritative check and its violation maps to the same sentinel.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Row and Rows mirror the pgx scanning surface the services use, so unit
// tests can substitute fakes.
type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

// Queryer is the query surface shared by a pool connection and an open
// transaction. Exec returns the number of rows affected.
type Queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

type Tx interface {
	Queryer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type DBConn interface {
	Queryer
	Begin(ctx context.Context) (Tx, error)
}

type poolConn struct {
	pool *pgxpool.Pool
}

// NewPoolConn adapts a pgx pool to the DBConn interface.
func NewPoolConn(pool *pgxpool.Pool) DBConn {
	return &poolConn{pool: pool}
}

func (c *poolConn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return c.pool.QueryRow(ctx, sql, args...)
}

func (c *poolConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *poolConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, sql, args...)
	return tag.RowsAffected(), err
}

func (c *poolConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txConn{tx: tx}, nil
}

type txConn struct {
	tx pgx.Tx
}

func (c *txConn) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return c.tx.QueryRow(ctx, sql, args...)
}

func (c *txConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rows, err := c.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *txConn) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := c.tx.Exec(ctx, sql, args...)
	return tag.RowsAffected(), err
}

func (c *txConn) Commit(ctx context.Context) error {
	return c.tx.Commit(ctx)
}

func (c *txConn) Rollback(ctx context.Context) error {
	return c.tx.Rollback(ctx)
}
