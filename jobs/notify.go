package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Notification is a rendered status message kept for the staff inbox.
type Notification struct {
	BookingID uuid.UUID
	Status    string
	Message   string
	CreatedAt time.Time
}

// NotificationStore persists rendered notifications.
type NotificationStore interface {
	Save(ctx context.Context, n Notification) error
}

// PGNotificationStore writes notifications to booking_notifications.
type PGNotificationStore struct {
	pool *pgxpool.Pool
}

// NewPGNotificationStore builds a store on pool.
func NewPGNotificationStore(pool *pgxpool.Pool) *PGNotificationStore {
	return &PGNotificationStore{pool: pool}
}

// Save inserts one notification row.
func (s *PGNotificationStore) Save(ctx context.Context, n Notification) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO booking_notifications (booking_id, status, message, created_at)
VALUES ($1, $2, $3, $4)`, n.BookingID, n.Status, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("jobs: save notification: %w", err)
	}
	return nil
}

// BookingStatusJob renders and stores booking status notifications.
type BookingStatusJob struct {
	Formatter *MessageFormatter
	Store     NotificationStore
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewBookingStatusJob wires dependencies for the notification handler.
func NewBookingStatusJob(formatter *MessageFormatter, store NotificationStore, logger *slog.Logger) *BookingStatusJob {
	return &BookingStatusJob{
		Formatter: formatter,
		Store:     store,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskBookingStatusChanged tasks. Malformed payloads are
// not retried.
func (j *BookingStatusJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Formatter == nil {
		return errors.New("booking status: handler not configured")
	}
	payload, err := decodeBookingStatus(t)
	if err != nil {
		j.logger().Warn("drop booking status task", slog.Any("error", err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	msg := j.Formatter.BookingStatus(payload)
	logger := j.logger().With(
		slog.String("booking_id", payload.BookingID.String()),
		slog.String("from", string(payload.From)),
		slog.String("to", string(payload.To)),
	)
	if j.Store != nil {
		if err := j.Store.Save(ctx, Notification{
			BookingID: payload.BookingID,
			Status:    string(payload.To),
			Message:   msg,
			CreatedAt: j.clock(),
		}); err != nil {
			logger.Error("store booking notification", slog.Any("error", err))
			return err
		}
	}
	logger.Info("booking status notification", slog.String("message", msg))
	return nil
}

func (j *BookingStatusJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
