package postgres

import (
	"context"
	"fmt"

	"github.com/otlob-dev/otlob-wallet/internal/notify"
)

func (s *Store) InsertNotifications(ctx context.Context, items []notify.Notification) error {
	for _, n := range items {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO notifications (id, user_id, title, body, data, read, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.ID, n.UserID, n.Title, n.Body, n.Data, n.Read, n.CreatedAt); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}
