package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/escrow"
	"github.com/otlob-dev/otlob-wallet/internal/orders"
	"github.com/otlob-dev/otlob-wallet/internal/store"
)

const heldColumns = `id, order_id, customer_id, vendor_id, driver_id,
	total_amount, vendor_amount, driver_amount, admin_amount,
	status, hold_reason, auto_release_date, released_at, release_type, dispute_id,
	created_at, updated_at`

func scanHeld(row pgx.Row) (escrow.HeldBalance, error) {
	var hb escrow.HeldBalance
	err := row.Scan(&hb.ID, &hb.OrderID, &hb.CustomerID, &hb.VendorID, &hb.DriverID,
		&hb.TotalAmount, &hb.VendorAmount, &hb.DriverAmount, &hb.AdminAmount,
		&hb.Status, &hb.HoldReason, &hb.AutoReleaseDate, &hb.ReleasedAt, &hb.ReleaseType, &hb.DisputeID,
		&hb.CreatedAt, &hb.UpdatedAt)
	return hb, err
}

func (s *Store) InsertHeldBalance(ctx context.Context, tx store.Tx, hb escrow.HeldBalance) error {
	_, err := s.q(tx).Exec(ctx,
		`INSERT INTO held_balances
		 (id, order_id, customer_id, vendor_id, driver_id,
		  total_amount, vendor_amount, driver_amount, admin_amount,
		  status, hold_reason, auto_release_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		hb.ID, hb.OrderID, hb.CustomerID, hb.VendorID, hb.DriverID,
		hb.TotalAmount, hb.VendorAmount, hb.DriverAmount, hb.AdminAmount,
		hb.Status, hb.HoldReason, hb.AutoReleaseDate, hb.CreatedAt, hb.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert held balance: %w", err)
	}
	return nil
}

// HeldByOrderForUpdate locks the live escrow row for the order. Terminal rows
// are returned too so callers can report the invalid transition.
func (s *Store) HeldByOrderForUpdate(ctx context.Context, tx store.Tx, orderID string) (escrow.HeldBalance, error) {
	hb, err := scanHeld(s.q(tx).QueryRow(ctx,
		`SELECT `+heldColumns+` FROM held_balances
		 WHERE order_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1 FOR UPDATE`,
		orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return escrow.HeldBalance{}, domain.ErrNotFound
	}
	if err != nil {
		return escrow.HeldBalance{}, fmt.Errorf("lock held balance: %w", err)
	}
	return hb, nil
}

func (s *Store) HeldByOrder(ctx context.Context, orderID string) (escrow.HeldBalance, error) {
	hb, err := scanHeld(s.pool.QueryRow(ctx,
		`SELECT `+heldColumns+` FROM held_balances
		 WHERE order_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return escrow.HeldBalance{}, domain.ErrNotFound
	}
	if err != nil {
		return escrow.HeldBalance{}, fmt.Errorf("load held balance: %w", err)
	}
	return hb, nil
}

func (s *Store) UpdateHeldBalance(ctx context.Context, tx store.Tx, hb escrow.HeldBalance) error {
	tag, err := s.q(tx).Exec(ctx,
		`UPDATE held_balances SET
		 status = $1, released_at = $2, release_type = $3, dispute_id = $4, updated_at = $5
		 WHERE id = $6`,
		hb.Status, hb.ReleasedAt, hb.ReleaseType, hb.DisputeID, hb.UpdatedAt, hb.ID)
	if err != nil {
		return fmt.Errorf("update held balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListAutoReleasable(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT order_id FROM held_balances
		 WHERE status = 'HELD' AND auto_release_date <= $1
		 ORDER BY auto_release_date
		 LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("list auto-releasable: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const disputeColumns = `id, order_id, customer_id, driver_id, reason,
	customer_evidence, driver_response, driver_evidence,
	status, resolution, resolved_by, resolved_at, created_at, updated_at`

func scanDispute(row pgx.Row) (escrow.Dispute, error) {
	var d escrow.Dispute
	err := row.Scan(&d.ID, &d.OrderID, &d.CustomerID, &d.DriverID, &d.Reason,
		&d.CustomerEvidence, &d.DriverResponse, &d.DriverEvidence,
		&d.Status, &d.Resolution, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *Store) InsertDispute(ctx context.Context, tx store.Tx, d escrow.Dispute) error {
	_, err := s.q(tx).Exec(ctx,
		`INSERT INTO disputes
		 (id, order_id, customer_id, driver_id, reason, customer_evidence,
		  driver_response, driver_evidence, status, resolution, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.OrderID, d.CustomerID, d.DriverID, d.Reason, d.CustomerEvidence,
		d.DriverResponse, d.DriverEvidence, d.Status, d.Resolution, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert dispute: %w", err)
	}
	return nil
}

func (s *Store) DisputeByIDForUpdate(ctx context.Context, tx store.Tx, id string) (escrow.Dispute, error) {
	d, err := scanDispute(s.q(tx).QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return escrow.Dispute{}, domain.ErrNotFound
	}
	if err != nil {
		return escrow.Dispute{}, fmt.Errorf("lock dispute: %w", err)
	}
	return d, nil
}

func (s *Store) DisputeByOrder(ctx context.Context, orderID string) (*escrow.Dispute, error) {
	d, err := scanDispute(s.pool.QueryRow(ctx,
		`SELECT `+disputeColumns+` FROM disputes
		 WHERE order_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load dispute: %w", err)
	}
	return &d, nil
}

func (s *Store) ListDisputes(ctx context.Context, status escrow.DisputeStatus, limit int) ([]escrow.Dispute, error) {
	sql := `SELECT ` + disputeColumns + ` FROM disputes`
	args := []any{}
	if status != "" {
		sql += ` WHERE status = $1`
		args = append(args, status)
	}
	sql += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list disputes: %w", err)
	}
	defer rows.Close()

	var out []escrow.Dispute
	for rows.Next() {
		d, err := scanDispute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispute: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateDispute(ctx context.Context, tx store.Tx, d escrow.Dispute) error {
	tag, err := s.q(tx).Exec(ctx,
		`UPDATE disputes SET
		 driver_response = $1, driver_evidence = $2, status = $3,
		 resolution = $4, resolved_by = $5, resolved_at = $6, updated_at = $7
		 WHERE id = $8`,
		d.DriverResponse, d.DriverEvidence, d.Status,
		d.Resolution, d.ResolvedBy, d.ResolvedAt, d.UpdatedAt, d.ID)
	if err != nil {
		return fmt.Errorf("update dispute: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) AppendAudit(ctx context.Context, tx store.Tx, entry escrow.AuditEntry) error {
	_, err := s.q(tx).Exec(ctx,
		`INSERT INTO dispute_audit_logs (id, dispute_id, actor_id, action, old_value, new_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.DisputeID, entry.ActorID, entry.Action, entry.OldValue, entry.NewValue, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (s *Store) OrderByID(ctx context.Context, orderID string) (orders.Order, error) {
	var o orders.Order
	err := s.pool.QueryRow(ctx,
		`SELECT id, customer_id, vendor_id, driver_id, amount, status, payment_method, delivery_otp, created_at
		 FROM orders WHERE id = $1`,
		orderID).Scan(&o.ID, &o.CustomerID, &o.VendorID, &o.DriverID, &o.Amount,
		&o.Status, &o.PaymentMethod, &o.DeliveryOTP, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return orders.Order{}, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}

func (s *Store) SetOrderOTP(ctx context.Context, orderID, otp string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET delivery_otp = $1 WHERE id = $2`, otp, orderID)
	if err != nil {
		return fmt.Errorf("set delivery otp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
