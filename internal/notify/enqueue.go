package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues notification tasks onto the redis-backed queue.
type Client struct {
	inner *asynq.Client
}

func NewClient(redisAddr string) *Client {
	return &Client{inner: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

func (c *Client) Close() error { return c.inner.Close() }

// SendCustomNotification schedules a localized notification for the given
// recipients. Delivery happens asynchronously in the worker.
func (c *Client) SendCustomNotification(_ context.Context, userIDs []string, title, body map[string]string, data map[string]string) error {
	payload := CustomNotificationPayload{
		UserIDs: userIDs,
		Title:   title,
		Body:    body,
		Data:    data,
		SentAt:  time.Now(),
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskCustomNotification, b)
	_, err = c.inner.Enqueue(task, asynq.Queue("notifications"), asynq.MaxRetry(3))
	return err
}

// EnqueueSweep schedules one auto-release pass. Used by the periodic
// scheduler in the worker binary.
func (c *Client) EnqueueSweep(batchSize int) error {
	b, err := json.Marshal(SweepPayload{BatchSize: batchSize, RequestedAt: time.Now()})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskAutoReleaseSweep, b)
	_, err = c.inner.Enqueue(task, asynq.Queue("escrow"))
	return err
}
