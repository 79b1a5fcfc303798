package services

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Row, Rows and CommandTag mirror the pgx types so services can be tested
// without a database.
type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close()
	Err() error
}

type CommandTag interface {
	RowsAffected() int64
}

type DBConn interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

type Tx interface {
	DBConn
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type DB interface {
	DBConn
	Begin(ctx context.Context) (Tx, error)
}

// PoolAdapter exposes a pgx pool as a DB.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (a *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return a.pool.Exec(ctx, sql, args...)
}

func (a *PoolAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return a.pool.Query(ctx, sql, args...)
}

func (a *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return a.pool.QueryRow(ctx, sql, args...)
}

func (a *PoolAdapter) Begin(ctx context.Context) (Tx, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txAdapter{tx: tx}, nil
}

type txAdapter struct {
	tx pgx.Tx
}

func (t *txAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return t.tx.Exec(ctx, sql, args...)
}

func (t *txAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}

func (t *txAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *txAdapter) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *txAdapter) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
