package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/rentdesk/rentdesk/internal/bookings"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits jobs to the queue.
type Client struct {
	client enqueuer
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// NotifyStatusChange enqueues a booking status notification. It satisfies
// bookings.Notifier.
func (c *Client) NotifyStatusChange(ctx context.Context, change bookings.StatusChange) error {
	task, err := NewBookingStatusTask(change)
	if err != nil {
		return err
	}
	if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("jobs: enqueue %s: %w", TaskBookingStatusChanged, err)
	}
	return nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ bookings.Notifier = (*Client)(nil)
