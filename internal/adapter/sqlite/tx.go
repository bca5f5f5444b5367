package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/neomorfeo/providerhub/internal/domain"
)

// Compile-time check: ProviderRepository implements domain.Transactor.
var _ domain.Transactor = (*ProviderRepository)(nil)

type txKey struct{}

// ContextWithTx returns ctx carrying tx. Repository methods and the River
// publisher called with this context run inside tx.
func ContextWithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction stored by ContextWithTx, if any.
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction in ctx, or the database.
func (r *ProviderRepository) conn(ctx context.Context) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return r.db
}

// WithinTx runs fn in a transaction committed only if fn returns nil.
// A transaction already present in ctx is reused.
func (r *ProviderRepository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := TxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(ContextWithTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
