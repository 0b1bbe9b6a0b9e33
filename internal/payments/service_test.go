package payments_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/payments"
	"github.com/otlob-dev/otlob-wallet/internal/store/memory"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

// stubProvider returns canned invoice data and counts calls.
type stubProvider struct {
	mu          sync.Mutex
	createErr   error
	statusErr   error
	status      payments.InvoiceStatus
	createCalls int
	statusCalls int
}

func (p *stubProvider) CreateInvoice(_ context.Context, _ payments.InvoiceRequest) (payments.Invoice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return payments.Invoice{}, p.createErr
	}
	return payments.Invoice{URL: "https://pay.example/inv-1", InvoiceID: "inv-1", InvoiceKey: "key-1"}, nil
}

func (p *stubProvider) GetInvoiceStatus(_ context.Context, _ string) (payments.InvoiceStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusCalls++
	if p.statusErr != nil {
		return payments.InvoiceStatus{}, p.statusErr
	}
	return p.status, nil
}

func setup(provider *stubProvider) (*memory.Store, *wallet.Ledger, *payments.Service) {
	st := memory.New()
	ledger := wallet.NewLedger(st, "EGP")
	svc := payments.NewService(st, ledger, provider, "EGP")
	return st, ledger, svc
}

func TestCreateTopUpStoresInvoice(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{}
	_, _, svc := setup(provider)

	url, pl, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "https://app.example/done")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/inv-1", url)
	assert.Equal(t, "inv-1", pl.InvoiceID)
	assert.Equal(t, payments.LogPending, pl.Status)
	assert.False(t, pl.IsProcessed)
}

func TestCreateTopUpProviderFailure(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{createErr: errors.New("gateway down")}
	st, _, svc := setup(provider)

	_, _, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	// The log is terminal so a later replay cannot sneak a credit through.
	_, err = st.PaymentLogByInvoice(ctx, "inv-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateTopUpRejectsNonPositiveAmount(t *testing.T) {
	_, _, svc := setup(&stubProvider{})
	_, _, err := svc.CreateTopUp(context.Background(), "user-1", wallet.RoleCustomer, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVerifyPaymentCreditsOnce(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "paid", Amount: 50, Currency: "EGP"}}
	_, ledger, svc := setup(provider)

	_, pl, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	res, err := svc.VerifyPayment(ctx, pl.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payments.LogSuccess, res.Status)

	balance, err := ledger.Balance(ctx, wallet.Customer("user-1"))
	require.NoError(t, err)
	assert.InDelta(t, 50, balance, 0.001)

	// Replays return the cached result without asking the provider again.
	before := provider.statusCalls
	res, err = svc.VerifyPayment(ctx, pl.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payments.LogSuccess, res.Status)
	assert.Equal(t, before, provider.statusCalls)

	balance, err = ledger.Balance(ctx, wallet.Customer("user-1"))
	require.NoError(t, err)
	assert.InDelta(t, 50, balance, 0.001)

	txs, err := ledger.Transactions(ctx, wallet.Customer("user-1"), 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestVerifyPaymentAmountMismatch(t *testing.T) {
	ctx := context.Background()
	// Logged 50, provider says 45.
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "paid", Amount: 45, Currency: "EGP"}}
	_, ledger, svc := setup(provider)

	_, pl, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	res, err := svc.VerifyPayment(ctx, pl.InvoiceID)
	assert.ErrorIs(t, err, domain.ErrIntegrityViolation)
	assert.Equal(t, payments.LogFailed, res.Status)

	balance, err := ledger.Balance(ctx, wallet.Customer("user-1"))
	require.NoError(t, err)
	assert.InDelta(t, 0, balance, 0.001)

	// The log is now terminal: even if the provider later agrees, no credit.
	provider.status = payments.InvoiceStatus{Status: "paid", Amount: 50, Currency: "EGP"}
	res, err = svc.VerifyPayment(ctx, pl.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payments.LogFailed, res.Status)
	balance, _ = ledger.Balance(ctx, wallet.Customer("user-1"))
	assert.InDelta(t, 0, balance, 0.001)
}

func TestVerifyPaymentToleratesSmallAmountDrift(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "paid", Amount: 50.009, Currency: "egp"}}
	_, ledger, svc := setup(provider)

	_, pl, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	res, err := svc.VerifyPayment(ctx, pl.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payments.LogSuccess, res.Status)

	balance, err := ledger.Balance(ctx, wallet.Customer("user-1"))
	require.NoError(t, err)
	assert.InDelta(t, 50, balance, 0.001)
}

func TestVerifyPaymentTerminalProviderStatus(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "expired"}}
	_, ledger, svc := setup(provider)

	_, pl, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	res, err := svc.VerifyPayment(ctx, pl.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payments.LogFailed, res.Status)
	require.NotNil(t, res.Data)
	assert.True(t, res.Data.IsProcessed)

	balance, err := ledger.Balance(ctx, wallet.Customer("user-1"))
	require.NoError(t, err)
	assert.InDelta(t, 0, balance, 0.001)
}

func TestVerifyPaymentPendingIsRetryable(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "pending"}}
	_, _, svc := setup(provider)

	_, pl, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	res, err := svc.VerifyPayment(ctx, pl.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payments.LogPending, res.Status)
	require.NotNil(t, res.Data)
	assert.False(t, res.Data.IsProcessed)

	// The provider settles; the same invoice can still be confirmed.
	provider.status = payments.InvoiceStatus{Status: "paid", Amount: 50, Currency: "EGP"}
	res, err = svc.VerifyPayment(ctx, pl.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payments.LogSuccess, res.Status)
}

func TestVerifyPaymentProviderDown(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "paid", Amount: 50, Currency: "EGP"}}
	_, _, svc := setup(provider)

	_, pl, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	provider.statusErr = errors.New("timeout")
	_, err = svc.VerifyPayment(ctx, pl.InvoiceID)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

	// Recoverable: next verification succeeds.
	provider.statusErr = nil
	res, err := svc.VerifyPayment(ctx, pl.InvoiceID)
	require.NoError(t, err)
	assert.Equal(t, payments.LogSuccess, res.Status)
}

func TestConcurrentVerifyCreditsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	provider := &stubProvider{status: payments.InvoiceStatus{Status: "paid", Amount: 50, Currency: "EGP"}}
	_, ledger, svc := setup(provider)

	_, pl, err := svc.CreateTopUp(ctx, "user-1", wallet.RoleCustomer, 50, "")
	require.NoError(t, err)

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _ = svc.VerifyPayment(ctx, pl.InvoiceID)
		}()
	}
	wg.Wait()

	balance, err := ledger.Balance(ctx, wallet.Customer("user-1"))
	require.NoError(t, err)
	assert.InDelta(t, 50, balance, 0.001)

	txs, err := ledger.Transactions(ctx, wallet.Customer("user-1"), 50)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestVerifyPaymentUnknownInvoice(t *testing.T) {
	_, _, svc := setup(&stubProvider{})
	_, err := svc.VerifyPayment(context.Background(), "no-such-invoice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
