package withdraw_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store/memory"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
	"github.com/otlob-dev/otlob-wallet/internal/withdraw"
)

type fixture struct {
	st     *memory.Store
	ledger *wallet.Ledger
	svc    *withdraw.Service
}

func newFixture(t *testing.T, balance float64) fixture {
	t.Helper()
	st := memory.New()
	ledger := wallet.NewLedger(st, "EGP")
	svc := withdraw.NewService(st, ledger)
	st.SeedPayoutAccount("acct-1", "vend-1")
	if balance > 0 {
		_, err := ledger.Credit(context.Background(), wallet.Vendor("vend-1"), balance, wallet.Entry{
			Type: wallet.TxDeposit, Status: wallet.PayPaid,
		})
		require.NoError(t, err)
	}
	return fixture{st: st, ledger: ledger, svc: svc}
}

func createInput(amount float64) withdraw.CreateInput {
	return withdraw.CreateInput{
		UserID:          "vend-1",
		Role:            wallet.RoleVendor,
		Amount:          amount,
		Method:          "bank_transfer",
		PayoutAccountID: "acct-1",
	}
}

func TestCreateSnapshotsBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 150)

	r, err := f.svc.Create(ctx, createInput(100))
	require.NoError(t, err)
	assert.Equal(t, withdraw.StatusPending, r.Status)
	assert.InDelta(t, 150, r.BalanceSnapshot, 0.001)

	// Creation never moves money.
	balance, err := f.ledger.Balance(ctx, wallet.Vendor("vend-1"))
	require.NoError(t, err)
	assert.InDelta(t, 150, balance, 0.001)
}

func TestCreateGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 150)

	_, err := f.svc.Create(ctx, createInput(0))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Create(ctx, createInput(151))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	in := createInput(50)
	in.PayoutAccountID = "missing"
	_, err = f.svc.Create(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Using someone else's payout account is forbidden.
	f.st.SeedPayoutAccount("acct-other", "someone-else")
	in = createInput(50)
	in.PayoutAccountID = "acct-other"
	_, err = f.svc.Create(ctx, in)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreateRejectsSecondPendingRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 150)

	_, err := f.svc.Create(ctx, createInput(50))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, createInput(30))
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestReviewTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 150)

	r, err := f.svc.Create(ctx, createInput(50))
	require.NoError(t, err)

	r, err = f.svc.Approve(ctx, r.ID, "admin-1", "looks fine")
	require.NoError(t, err)
	assert.Equal(t, withdraw.StatusApproved, r.Status)
	require.NotNil(t, r.ReviewedBy)
	assert.Equal(t, "admin-1", *r.ReviewedBy)

	// Review is final: a second review of any kind is rejected.
	_, err = f.svc.Reject(ctx, r.ID, "admin-2", "changed my mind")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = f.svc.Approve(ctx, r.ID, "admin-2", "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestCompleteDebitsWallet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 150)

	r, err := f.svc.Create(ctx, createInput(100))
	require.NoError(t, err)
	r, err = f.svc.Approve(ctx, r.ID, "admin-1", "")
	require.NoError(t, err)

	r, err = f.svc.Complete(ctx, r.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, withdraw.StatusCompleted, r.Status)
	require.NotNil(t, r.Reference)
	require.NotNil(t, r.CompletedAt)

	balance, err := f.ledger.Balance(ctx, wallet.Vendor("vend-1"))
	require.NoError(t, err)
	assert.InDelta(t, 50, balance, 0.001)

	// Completing again must not debit twice.
	_, err = f.svc.Complete(ctx, r.ID, "admin-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	balance, _ = f.ledger.Balance(ctx, wallet.Vendor("vend-1"))
	assert.InDelta(t, 50, balance, 0.001)
}

func TestCompleteRevalidatesLiveBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 150)

	// Snapshot is 150, request 100.
	r, err := f.svc.Create(ctx, createInput(100))
	require.NoError(t, err)
	r, err = f.svc.Approve(ctx, r.ID, "admin-1", "")
	require.NoError(t, err)

	// The vendor spends down to 80 before the payout is executed.
	_, err = f.ledger.Debit(ctx, wallet.Vendor("vend-1"), 70, wallet.Entry{
		Type: wallet.TxPayment, Status: wallet.PayPaid,
	})
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, r.ID, "admin-1")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Nothing moved and the request survives for a later retry.
	balance, err := f.ledger.Balance(ctx, wallet.Vendor("vend-1"))
	require.NoError(t, err)
	assert.InDelta(t, 80, balance, 0.001)

	got, err := f.st.WithdrawRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, withdraw.StatusApproved, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestCompleteRejectedRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 150)

	r, err := f.svc.Create(ctx, createInput(50))
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, r.ID, "admin-1", "suspicious")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, r.ID, "admin-1")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestListPendingAndMine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 150)

	r, err := f.svc.Create(ctx, createInput(50))
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, r.ID, pending[0].ID)

	mine, err := f.svc.ListMine(ctx, "vend-1", 10)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.svc.Approve(ctx, r.ID, "admin-1", "")
	require.NoError(t, err)
	pending, err = f.svc.ListPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
