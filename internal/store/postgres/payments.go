package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/payments"
	"github.com/otlob-dev/otlob-wallet/internal/store"
)

const paymentLogColumns = `id, user_id, role, amount, currency, status,
	invoice_id, invoice_key, is_processed, provider_response, created_at, updated_at`

func scanPaymentLog(row pgx.Row) (payments.PaymentLog, error) {
	var pl payments.PaymentLog
	err := row.Scan(&pl.ID, &pl.UserID, &pl.Role, &pl.Amount, &pl.Currency, &pl.Status,
		&pl.InvoiceID, &pl.InvoiceKey, &pl.IsProcessed, &pl.ProviderResponse, &pl.CreatedAt, &pl.UpdatedAt)
	return pl, err
}

func (s *Store) InsertPaymentLog(ctx context.Context, pl payments.PaymentLog) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_logs
		 (id, user_id, role, amount, currency, status, invoice_id, invoice_key,
		  is_processed, provider_response, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		pl.ID, pl.UserID, pl.Role, pl.Amount, pl.Currency, pl.Status, pl.InvoiceID, pl.InvoiceKey,
		pl.IsProcessed, pl.ProviderResponse, pl.CreatedAt, pl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment log: %w", err)
	}
	return nil
}

func (s *Store) PaymentLogByInvoice(ctx context.Context, invoiceID string) (payments.PaymentLog, error) {
	pl, err := scanPaymentLog(s.pool.QueryRow(ctx,
		`SELECT `+paymentLogColumns+` FROM payment_logs WHERE invoice_id = $1`, invoiceID))
	if errors.Is(err, pgx.ErrNoRows) {
		return payments.PaymentLog{}, domain.ErrNotFound
	}
	if err != nil {
		return payments.PaymentLog{}, fmt.Errorf("load payment log: %w", err)
	}
	return pl, nil
}

func (s *Store) PaymentLogForUpdate(ctx context.Context, tx store.Tx, id string) (payments.PaymentLog, error) {
	pl, err := scanPaymentLog(s.q(tx).QueryRow(ctx,
		`SELECT `+paymentLogColumns+` FROM payment_logs WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return payments.PaymentLog{}, domain.ErrNotFound
	}
	if err != nil {
		return payments.PaymentLog{}, fmt.Errorf("lock payment log: %w", err)
	}
	return pl, nil
}

func (s *Store) UpdatePaymentLog(ctx context.Context, tx store.Tx, pl payments.PaymentLog) error {
	return s.updatePaymentLog(ctx, s.q(tx), pl)
}

func (s *Store) UpdatePaymentLogDirect(ctx context.Context, pl payments.PaymentLog) error {
	return s.updatePaymentLog(ctx, s.pool, pl)
}

func (s *Store) updatePaymentLog(ctx context.Context, q querier, pl payments.PaymentLog) error {
	tag, err := q.Exec(ctx,
		`UPDATE payment_logs SET
		 status = $1, invoice_id = $2, invoice_key = $3, is_processed = $4,
		 provider_response = $5, updated_at = $6
		 WHERE id = $7`,
		pl.Status, pl.InvoiceID, pl.InvoiceKey, pl.IsProcessed,
		pl.ProviderResponse, pl.UpdatedAt, pl.ID)
	if err != nil {
		return fmt.Errorf("update payment log: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
