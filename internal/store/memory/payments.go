package memory

import (
	"context"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/payments"
	"github.com/otlob-dev/otlob-wallet/internal/store"
)

func (s *Store) InsertPaymentLog(_ context.Context, pl payments.PaymentLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.paymentLogs[pl.ID] = pl
	return nil
}

func (s *Store) PaymentLogByInvoice(_ context.Context, invoiceID string) (payments.PaymentLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pl := range s.st.paymentLogs {
		if pl.InvoiceID == invoiceID {
			return pl, nil
		}
	}
	return payments.PaymentLog{}, domain.ErrNotFound
}

func (s *Store) PaymentLogForUpdate(_ context.Context, tx store.Tx, id string) (payments.PaymentLog, error) {
	defer s.enter(tx)()
	pl, ok := s.st.paymentLogs[id]
	if !ok {
		return payments.PaymentLog{}, domain.ErrNotFound
	}
	return pl, nil
}

func (s *Store) UpdatePaymentLog(_ context.Context, tx store.Tx, pl payments.PaymentLog) error {
	defer s.enter(tx)()
	if _, ok := s.st.paymentLogs[pl.ID]; !ok {
		return domain.ErrNotFound
	}
	s.st.paymentLogs[pl.ID] = pl
	return nil
}

func (s *Store) UpdatePaymentLogDirect(ctx context.Context, pl payments.PaymentLog) error {
	return s.UpdatePaymentLog(ctx, nil, pl)
}
