// Package postgres implements the feature store interfaces on top of pgx.
// One Store satisfies the wallet, escrow, payments, withdraw and notify
// contracts so a single transaction can span all of them.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/otlob-dev/otlob-wallet/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// pgxTx adapts pgx.Tx to store.Tx. Rollback after Commit reports no error so
// callers can keep Rollback deferred unconditionally.
type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t pgxTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return pgxTx{tx: tx}, nil
}

func (s *Store) BeginSerializable(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin serializable tx: %w", err)
	}
	return pgxTx{tx: tx}, nil
}

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// q returns the transaction when one is open, otherwise the pool.
func (s *Store) q(tx store.Tx) querier {
	if tx == nil {
		return s.pool
	}
	concrete, ok := tx.(pgxTx)
	if !ok {
		return s.pool
	}
	return concrete.tx
}
