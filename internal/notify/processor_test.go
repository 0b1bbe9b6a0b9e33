package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otlob-dev/otlob-wallet/internal/escrow"
	"github.com/otlob-dev/otlob-wallet/internal/notify"
	"github.com/otlob-dev/otlob-wallet/internal/store/memory"
	"github.com/otlob-dev/otlob-wallet/internal/wallet"
)

func TestCustomNotificationPersistsPerRecipient(t *testing.T) {
	st := memory.New()
	p := notify.NewProcessor(st, nil)

	payload, err := json.Marshal(notify.CustomNotificationPayload{
		UserIDs: []string{"u1", "u2"},
		Title:   map[string]string{"en": "Dispute opened", "ar": "تم فتح نزاع"},
		Body:    map[string]string{"en": "Order 42 is under review"},
		Data:    map[string]string{"order_id": "42"},
		SentAt:  time.Now(),
	})
	require.NoError(t, err)

	err = p.Mux().ProcessTask(context.Background(), asynq.NewTask(notify.TaskCustomNotification, payload))
	require.NoError(t, err)

	items := st.Notifications()
	require.Len(t, items, 2)
	assert.Equal(t, "Dispute opened", items[0].Title)
	assert.Equal(t, "Order 42 is under review", items[0].Body)
	assert.Equal(t, "42", items[0].Data["order_id"])
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestCustomNotificationBadPayload(t *testing.T) {
	p := notify.NewProcessor(memory.New(), nil)
	err := p.Mux().ProcessTask(context.Background(), asynq.NewTask(notify.TaskCustomNotification, []byte("{not json")))
	assert.Error(t, err)
}

func TestAutoReleaseSweepTask(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	ledger := wallet.NewLedger(st, "EGP")
	es := escrow.NewService(st, ledger, nil, 7)
	p := notify.NewProcessor(st, es)

	_, err := ledger.Credit(ctx, wallet.Customer("cust-1"), 100, wallet.Entry{
		Type: wallet.TxDeposit, Status: wallet.PayPaid,
	})
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	es.SetNow(func() time.Time { return base })
	_, err = es.Hold(ctx, escrow.HoldInput{
		OrderID: "order-1", CustomerID: "cust-1", VendorID: "vend-1",
		VendorAmount: 95, AdminAmount: 5,
	})
	require.NoError(t, err)

	es.SetNow(func() time.Time { return base.AddDate(0, 0, 8) })
	payload, err := json.Marshal(notify.SweepPayload{BatchSize: 10, RequestedAt: time.Now()})
	require.NoError(t, err)
	err = p.Mux().ProcessTask(ctx, asynq.NewTask(notify.TaskAutoReleaseSweep, payload))
	require.NoError(t, err)

	hb, err := st.HeldByOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, escrow.StatusReleased, hb.Status)
}
