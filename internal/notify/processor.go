package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/otlob-dev/otlob-wallet/internal/escrow"
)

// Store persists the in-app copy of delivered notifications.
type Store interface {
	InsertNotifications(ctx context.Context, items []Notification) error
}

// Processor consumes queued tasks in the worker binary.
type Processor struct {
	store  Store
	escrow *escrow.Service
}

func NewProcessor(store Store, es *escrow.Service) *Processor {
	return &Processor{store: store, escrow: es}
}

// Mux wires task types to their handlers.
func (p *Processor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCustomNotification, p.handleCustomNotification)
	mux.HandleFunc(TaskAutoReleaseSweep, p.handleAutoReleaseSweep)
	return mux
}

func (p *Processor) handleCustomNotification(ctx context.Context, t *asynq.Task) error {
	var payload CustomNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	title := localized(payload.Title)
	body := localized(payload.Body)

	items := make([]Notification, 0, len(payload.UserIDs))
	for _, uid := range payload.UserIDs {
		items = append(items, Notification{
			ID:        uuid.New().String(),
			UserID:    uid,
			Title:     title,
			Body:      body,
			Data:      payload.Data,
			CreatedAt: time.Now(),
		})
	}
	if err := p.store.InsertNotifications(ctx, items); err != nil {
		log.Printf("[notify][ERROR] persist failed: users=%d err=%v", len(payload.UserIDs), err)
		return err
	}
	log.Printf("[notify] delivered -> users=%d title=%q", len(payload.UserIDs), title)
	return nil
}

func (p *Processor) handleAutoReleaseSweep(ctx context.Context, t *asynq.Task) error {
	var payload SweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	res, err := p.escrow.SweepAutoRelease(ctx, payload.BatchSize)
	if err != nil {
		log.Printf("[notify][ERROR] auto-release sweep failed: %v", err)
		return err
	}
	log.Printf("[notify] auto-release sweep: scanned=%d released=%d failed=%d",
		res.Scanned, res.Released, res.Failed)
	return nil
}

// localized picks the English variant when available, otherwise any entry.
func localized(m map[string]string) string {
	if v, ok := m["en"]; ok {
		return v
	}
	for _, v := range m {
		return v
	}
	return ""
}
