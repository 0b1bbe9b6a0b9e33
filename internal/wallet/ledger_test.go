package wallet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otlob-dev/otlob-wallet/internal/domain"
	"github.com/otlob-dev/otlob-wallet/internal/store/memory"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

func TestLedgerCreditAndDebit(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	ledger := wallet.NewLedger(st, "EGP")
	owner := wallet.Customer("cust-1")

	_, err := ledger.Credit(ctx, owner, 200, wallet.Entry{Type: wallet.TxDeposit, Status: wallet.PayPaid})
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, owner, 50, wallet.Entry{Type: wallet.TxPayment, Status: wallet.PayPaid})
	require.NoError(t, err)

	balance, err := ledger.Balance(ctx, owner)
	require.NoError(t, err)
	assert.InDelta(t, 150, balance, 0.001)
}

func TestLedgerDebitInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	ledger := wallet.NewLedger(st, "EGP")
	owner := wallet.Customer("cust-1")

	_, err := ledger.Credit(ctx, owner, 30, wallet.Entry{Type: wallet.TxDeposit, Status: wallet.PayPaid})
	require.NoError(t, err)

	_, err = ledger.Debit(ctx, owner, 31, wallet.Entry{Type: wallet.TxPayment})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// The failed debit must leave no journal row behind.
	balance, err := ledger.Balance(ctx, owner)
	require.NoError(t, err)
	assert.InDelta(t, 30, balance, 0.001)
	txs, err := ledger.Transactions(ctx, owner, 10)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLedgerRejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	ledger := wallet.NewLedger(memory.New(), "EGP")
	owner := wallet.Vendor("v-1")

	_, err := ledger.Credit(ctx, owner, 0, wallet.Entry{Type: wallet.TxDeposit})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = ledger.Debit(ctx, owner, -5, wallet.Entry{Type: wallet.TxPayment})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLedgerBalanceIgnoresPendingDeposits(t *testing.T) {
	ctx := context.Background()
	ledger := wallet.NewLedger(memory.New(), "EGP")
	owner := wallet.Customer("cust-1")

	_, err := ledger.Credit(ctx, owner, 100, wallet.Entry{Type: wallet.TxDeposit, Status: wallet.PayPaid})
	require.NoError(t, err)
	// A pending deposit reaches the journal but must not count.
	_, err = ledger.Credit(ctx, owner, 40, wallet.Entry{Type: wallet.TxDeposit, Status: wallet.PayPending})
	require.NoError(t, err)

	balance, err := ledger.Balance(ctx, owner)
	require.NoError(t, err)
	assert.InDelta(t, 100, balance, 0.001)
}

func TestLedgerReconcile(t *testing.T) {
	ctx := context.Background()
	ledger := wallet.NewLedger(memory.New(), "EGP")
	owner := wallet.Driver("d-1")

	_, err := ledger.Credit(ctx, owner, 75.5, wallet.Entry{Type: wallet.TxDeposit, Status: wallet.PayPaid})
	require.NoError(t, err)

	rec, err := ledger.Reconcile(ctx, owner)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.InDelta(t, rec.CachedBalance, rec.JournalSum, 0.005)
}

func TestOwnerForRoleFallsBackToPlatform(t *testing.T) {
	assert.Equal(t, wallet.Customer("u1"), wallet.OwnerForRole(wallet.RoleCustomer, "u1"))
	assert.Equal(t, wallet.Platform(), wallet.OwnerForRole("admin", "u1"))
	assert.Equal(t, wallet.PlatformOwnerID, wallet.OwnerForRole("", "u1").ID)
}
