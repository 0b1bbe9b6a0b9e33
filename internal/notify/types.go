package notify

import "time"

// Task type constants
const (
	TaskCustomNotification = "notify:custom"
	TaskAutoReleaseSweep   = "escrow:auto_release_sweep"
)

// CustomNotificationPayload carries a localized push/in-app notification
// for one or more recipients. Title and Body are keyed by language code.
type CustomNotificationPayload struct {
	UserIDs []string          `json:"user_ids"`
	Title   map[string]string `json:"title"`
	Body    map[string]string `json:"body"`
	Data    map[string]string `json:"data,omitempty"`
	SentAt  time.Time         `json:"sent_at"`
}

// SweepPayload triggers one auto-release pass over timed-out holds.
type SweepPayload struct {
	BatchSize   int       `json:"batch_size"`
	RequestedAt time.Time `json:"requested_at"`
}

// Notification is the persisted in-app copy of a delivered notification.
type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
}
