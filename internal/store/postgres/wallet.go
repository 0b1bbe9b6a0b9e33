package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

const accountColumns = `owner_id, role, balance, currency, created_at, updated_at`

func scanAccount(row pgx.Row) (wallet.Account, error) {
	var a wallet.Account
	err := row.Scan(&a.OwnerID, &a.Role, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// AccountForUpdate locks the wallet row, creating it first when the owner has
// never transacted. The insert races other creators; ON CONFLICT makes the
// retry read see the winner's row.
func (s *Store) AccountForUpdate(ctx context.Context, tx store.Tx, owner wallet.Owner) (wallet.Account, error) {
	q := s.q(tx)
	a, err := scanAccount(q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM wallet_accounts
		 WHERE owner_id = $1 AND role = $2 FOR UPDATE`,
		owner.ID, owner.Role))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return wallet.Account{}, fmt.Errorf("lock wallet account: %w", err)
	}

	if _, err := q.Exec(ctx,
		`INSERT INTO wallet_accounts (owner_id, role, balance)
		 VALUES ($1, $2, 0)
		 ON CONFLICT (owner_id, role) DO NOTHING`,
		owner.ID, owner.Role); err != nil {
		return wallet.Account{}, fmt.Errorf("create wallet account: %w", err)
	}

	a, err = scanAccount(q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM wallet_accounts
		 WHERE owner_id = $1 AND role = $2 FOR UPDATE`,
		owner.ID, owner.Role))
	if err != nil {
		return wallet.Account{}, fmt.Errorf("lock wallet account: %w", err)
	}
	return a, nil
}

func (s *Store) UpdateBalance(ctx context.Context, tx store.Tx, owner wallet.Owner, balance float64, at time.Time) error {
	tag, err := s.q(tx).Exec(ctx,
		`UPDATE wallet_accounts SET balance = $1, updated_at = $2
		 WHERE owner_id = $3 AND role = $4`,
		balance, at, owner.ID, owner.Role)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) AppendTransaction(ctx context.Context, tx store.Tx, txn wallet.Transaction) error {
	_, err := s.q(tx).Exec(ctx,
		`INSERT INTO wallet_transactions
		 (id, owner_id, role, amount, type, payment_status, order_id, reference, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		txn.ID, txn.OwnerID, txn.Role, txn.Amount, txn.Type, txn.PaymentStatus,
		txn.OrderID, txn.Reference, txn.Metadata, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

func (s *Store) SumJournal(ctx context.Context, tx store.Tx, owner wallet.Owner) (float64, error) {
	var sum float64
	err := s.q(tx).QueryRow(ctx,
		`SELECT COALESCE(SUM(CASE
			WHEN type = 'DEPOSIT' AND payment_status = 'PAID' THEN amount
			WHEN type IN ('WITHDRAWAL', 'PAYMENT') THEN -amount
			ELSE 0
		 END), 0)
		 FROM wallet_transactions
		 WHERE owner_id = $1 AND role = $2`,
		owner.ID, owner.Role).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum journal: %w", err)
	}
	return sum, nil
}

func (s *Store) Account(ctx context.Context, owner wallet.Owner) (wallet.Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM wallet_accounts
		 WHERE owner_id = $1 AND role = $2`,
		owner.ID, owner.Role))
	if errors.Is(err, pgx.ErrNoRows) {
		return wallet.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return wallet.Account{}, fmt.Errorf("load wallet account: %w", err)
	}
	return a, nil
}

func (s *Store) ListTransactions(ctx context.Context, owner wallet.Owner, limit int) ([]wallet.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, role, amount, type, payment_status, order_id, reference, metadata, created_at
		 FROM wallet_transactions
		 WHERE owner_id = $1 AND role = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		owner.ID, owner.Role, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]wallet.Transaction, 0, limit)
	for rows.Next() {
		var t wallet.Transaction
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Role, &t.Amount, &t.Type, &t.PaymentStatus,
			&t.OrderID, &t.Reference, &t.Metadata, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
