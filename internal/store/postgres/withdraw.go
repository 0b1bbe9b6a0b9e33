package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store"
	"github.com/otlob-dev/otlob-wallet/internal/withdraw"
)

const withdrawColumns = `id, user_id, role, amount, status, method, payout_account_id,
	balance_snapshot, admin_notes, reference, reviewed_by, reviewed_at, completed_at,
	created_at, updated_at`

func scanWithdraw(row pgx.Row) (withdraw.Request, error) {
	var r withdraw.Request
	err := row.Scan(&r.ID, &r.UserID, &r.Role, &r.Amount, &r.Status, &r.Method, &r.PayoutAccountID,
		&r.BalanceSnapshot, &r.AdminNotes, &r.Reference, &r.ReviewedBy, &r.ReviewedAt, &r.CompletedAt,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) InsertWithdrawRequest(ctx context.Context, r withdraw.Request) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO withdraw_requests
		 (id, user_id, role, amount, status, method, payout_account_id,
		  balance_snapshot, admin_notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.UserID, r.Role, r.Amount, r.Status, r.Method, r.PayoutAccountID,
		r.BalanceSnapshot, r.AdminNotes, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert withdraw request: %w", err)
	}
	return nil
}

func (s *Store) WithdrawRequestForUpdate(ctx context.Context, tx store.Tx, id string) (withdraw.Request, error) {
	r, err := scanWithdraw(s.q(tx).QueryRow(ctx,
		`SELECT `+withdrawColumns+` FROM withdraw_requests WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return withdraw.Request{}, domain.ErrNotFound
	}
	if err != nil {
		return withdraw.Request{}, fmt.Errorf("lock withdraw request: %w", err)
	}
	return r, nil
}

func (s *Store) WithdrawRequest(ctx context.Context, id string) (withdraw.Request, error) {
	r, err := scanWithdraw(s.pool.QueryRow(ctx,
		`SELECT `+withdrawColumns+` FROM withdraw_requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return withdraw.Request{}, domain.ErrNotFound
	}
	if err != nil {
		return withdraw.Request{}, fmt.Errorf("load withdraw request: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateWithdrawRequest(ctx context.Context, tx store.Tx, r withdraw.Request) error {
	return s.updateWithdraw(ctx, s.q(tx), r)
}

func (s *Store) UpdateWithdrawRequestDirect(ctx context.Context, r withdraw.Request) error {
	return s.updateWithdraw(ctx, s.pool, r)
}

func (s *Store) updateWithdraw(ctx context.Context, q querier, r withdraw.Request) error {
	tag, err := q.Exec(ctx,
		`UPDATE withdraw_requests SET
		 status = $1, admin_notes = $2, reference = $3, reviewed_by = $4,
		 reviewed_at = $5, completed_at = $6, updated_at = $7
		 WHERE id = $8`,
		r.Status, r.AdminNotes, r.Reference, r.ReviewedBy,
		r.ReviewedAt, r.CompletedAt, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("update withdraw request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) HasPendingWithdrawRequest(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM withdraw_requests WHERE user_id = $1 AND status = 'PENDING')`,
		userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending withdraw request: %w", err)
	}
	return exists, nil
}

func (s *Store) ListWithdrawRequestsByUser(ctx context.Context, userID string, limit int) ([]withdraw.Request, error) {
	return s.listWithdraw(ctx,
		`SELECT `+withdrawColumns+` FROM withdraw_requests
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
}

func (s *Store) ListPendingWithdrawRequests(ctx context.Context, limit int) ([]withdraw.Request, error) {
	return s.listWithdraw(ctx,
		`SELECT `+withdrawColumns+` FROM withdraw_requests
		 WHERE status = 'PENDING' ORDER BY created_at LIMIT $1`,
		limit)
}

func (s *Store) listWithdraw(ctx context.Context, sql string, args ...any) ([]withdraw.Request, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list withdraw requests: %w", err)
	}
	defer rows.Close()

	var out []withdraw.Request
	for rows.Next() {
		r, err := scanWithdraw(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdraw request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) PayoutAccountOwner(ctx context.Context, accountID string) (string, error) {
	var owner string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM payout_accounts WHERE id = $1`, accountID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load payout account: %w", err)
	}
	return owner, nil
}
