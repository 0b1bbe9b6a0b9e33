// Package store defines the transaction handle shared by the feature stores.
// Each feature package declares its own narrow store interface; the postgres
// and memory implementations satisfy all of them, so one Tx spans wallet,
// escrow, payment and withdrawal rows.
package store

import "context"

// Tx is an open database transaction. Rollback after Commit is a no-op.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
