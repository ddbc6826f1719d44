// Package tx carries a SQL transaction through context so stores can join a
// transaction opened by the service layer without changing their signatures.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Stores resolve it per call so the same code runs inside or outside a
// transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Resolve returns the transaction from ctx if one is present, else db.
func Resolve(ctx context.Context, db *sql.DB) Querier {
	if t, ok := From(ctx); ok {
		return t
	}
	return db
}

// StoreTx runs a function inside a transaction boundary. The SQL
// implementation opens a real transaction; the in-memory implementation just
// invokes the function, which is enough for single-process stores guarded by
// their own mutexes.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// SQLStoreTx implements StoreTx over database/sql.
type SQLStoreTx struct {
	db *sql.DB
}

// NewSQLStoreTx constructs a transaction runner bound to db.
func NewSQLStoreTx(db *sql.DB) *SQLStoreTx {
	return &SQLStoreTx{db: db}
}

func (s *SQLStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	t, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(WithTx(ctx, t)); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// NoopStoreTx is the in-memory StoreTx used with memory stores and in tests.
type NoopStoreTx struct{}

// NewNoopStoreTx constructs a pass-through transaction runner.
func NewNoopStoreTx() *NoopStoreTx {
	return &NoopStoreTx{}
}

func (NoopStoreTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
