package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and bootstraps the schema.
func Init(dsn string) {
	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureWalletTables()
	ensureEscrowTables()
	ensurePaymentTables()
	ensureWithdrawTables()
	ensureNotificationsTable()
}

// Close releases the pool.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

// ensureWalletTables creates the account and journal tables.
func ensureWalletTables() {
	ctx := context.Background()
	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_accounts (
			owner_id   TEXT NOT NULL,
			role       TEXT NOT NULL,
			balance    DOUBLE PRECISION NOT NULL DEFAULT 0,
			currency   TEXT NOT NULL DEFAULT 'EGP',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (owner_id, role)
		)`); err != nil {
		log.Printf("failed to ensure wallet_accounts: %v", err)
	}

	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallet_transactions (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT NOT NULL,
			role           TEXT NOT NULL,
			amount         DOUBLE PRECISION NOT NULL,
			type           TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			order_id       TEXT,
			reference      TEXT,
			metadata       JSONB,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure wallet_transactions: %v", err)
	}

	if _, err := Conn.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_wallet_tx_owner
		ON wallet_transactions (owner_id, role, created_at DESC)`); err != nil {
		log.Printf("failed to ensure wallet_transactions owner index: %v", err)
	}

	// One credit per top-up reference.
	if _, err := Conn.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_wallet_tx_deposit_ref
		ON wallet_transactions (reference)
		WHERE type = 'DEPOSIT' AND reference IS NOT NULL`); err != nil {
		log.Printf("failed to ensure deposit reference index: %v", err)
	}
}

// ensureEscrowTables creates held balances, disputes and the audit log.
func ensureEscrowTables() {
	ctx := context.Background()
	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS held_balances (
			id                TEXT PRIMARY KEY,
			order_id          TEXT NOT NULL,
			customer_id       TEXT NOT NULL,
			vendor_id         TEXT NOT NULL,
			driver_id         TEXT,
			total_amount      DOUBLE PRECISION NOT NULL,
			vendor_amount     DOUBLE PRECISION NOT NULL,
			driver_amount     DOUBLE PRECISION NOT NULL,
			admin_amount      DOUBLE PRECISION NOT NULL,
			status            TEXT NOT NULL DEFAULT 'HELD',
			hold_reason       TEXT,
			auto_release_date TIMESTAMPTZ NOT NULL,
			released_at       TIMESTAMPTZ,
			release_type      TEXT,
			dispute_id        TEXT,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure held_balances: %v", err)
	}

	// At most one live hold per order.
	if _, err := Conn.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_held_balances_live_order
		ON held_balances (order_id)
		WHERE status IN ('HELD', 'DISPUTED')`); err != nil {
		log.Printf("failed to ensure held_balances order index: %v", err)
	}

	if _, err := Conn.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_held_balances_auto_release
		ON held_balances (auto_release_date)
		WHERE status = 'HELD'`); err != nil {
		log.Printf("failed to ensure held_balances release index: %v", err)
	}

	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS disputes (
			id                TEXT PRIMARY KEY,
			order_id          TEXT NOT NULL,
			customer_id       TEXT NOT NULL,
			driver_id         TEXT,
			reason            TEXT NOT NULL,
			customer_evidence TEXT,
			driver_response   TEXT,
			driver_evidence   TEXT,
			status            TEXT NOT NULL DEFAULT 'PENDING',
			resolution        TEXT,
			resolved_by       TEXT,
			resolved_at       TIMESTAMPTZ,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure disputes: %v", err)
	}

	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS dispute_audit_logs (
			id         TEXT PRIMARY KEY,
			dispute_id TEXT NOT NULL,
			actor_id   TEXT NOT NULL,
			action     TEXT NOT NULL,
			old_value  TEXT,
			new_value  TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure dispute_audit_logs: %v", err)
	}
}

// ensurePaymentTables creates the top-up log and the order view used by escrow.
func ensurePaymentTables() {
	ctx := context.Background()
	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS payment_logs (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			role              TEXT NOT NULL,
			amount            DOUBLE PRECISION NOT NULL,
			currency          TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'PENDING',
			invoice_id        TEXT,
			invoice_key       TEXT,
			is_processed      BOOLEAN NOT NULL DEFAULT FALSE,
			provider_response JSONB,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure payment_logs: %v", err)
	}

	if _, err := Conn.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_payment_logs_invoice
		ON payment_logs (invoice_id)
		WHERE invoice_id IS NOT NULL`); err != nil {
		log.Printf("failed to ensure payment_logs invoice index: %v", err)
	}

	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id             TEXT PRIMARY KEY,
			customer_id    TEXT NOT NULL,
			vendor_id      TEXT NOT NULL,
			driver_id      TEXT,
			amount         DOUBLE PRECISION NOT NULL,
			status         TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			delivery_otp   TEXT,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure orders: %v", err)
	}
}

// ensureWithdrawTables creates payout requests and payout accounts.
func ensureWithdrawTables() {
	ctx := context.Background()
	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS withdraw_requests (
			id                TEXT PRIMARY KEY,
			user_id           TEXT NOT NULL,
			role              TEXT NOT NULL,
			amount            DOUBLE PRECISION NOT NULL,
			status            TEXT NOT NULL DEFAULT 'PENDING',
			method            TEXT,
			payout_account_id TEXT NOT NULL,
			balance_snapshot  DOUBLE PRECISION NOT NULL,
			admin_notes       TEXT,
			reference         TEXT,
			reviewed_by       TEXT,
			reviewed_at       TIMESTAMPTZ,
			completed_at      TIMESTAMPTZ,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure withdraw_requests: %v", err)
	}

	// One open request per user.
	if _, err := Conn.Exec(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_withdraw_requests_pending
		ON withdraw_requests (user_id)
		WHERE status = 'PENDING'`); err != nil {
		log.Printf("failed to ensure withdraw_requests pending index: %v", err)
	}

	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS payout_accounts (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			method     TEXT NOT NULL,
			details    JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure payout_accounts: %v", err)
	}
}

// ensureNotificationsTable creates the in-app notification copy.
func ensureNotificationsTable() {
	ctx := context.Background()
	if _, err := Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT,
			data       JSONB,
			read       BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		log.Printf("failed to ensure notifications: %v", err)
	}
}
