package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/rentdesk/rentdesk/internal/bookings"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBookingStatusChanged notifies staff that a booking moved to a new status.
	TaskBookingStatusChanged = "booking:status_changed"
)

// BookingStatusPayload is the queued form of bookings.StatusChange.
type BookingStatusPayload struct {
	BookingID   uuid.UUID       `json:"booking_id"`
	ClientID    int64           `json:"client_id"`
	EquipmentID int64           `json:"equipment_id"`
	From        bookings.Status `json:"from"`
	To          bookings.Status `json:"to"`
	TotalAmount float64         `json:"total_amount"`
	ActorID     string          `json:"actor_id"`
	At          time.Time       `json:"at"`
}

func payloadFromChange(change bookings.StatusChange) BookingStatusPayload {
	return BookingStatusPayload{
		BookingID:   change.BookingID,
		ClientID:    change.ClientID,
		EquipmentID: change.EquipmentID,
		From:        change.From,
		To:          change.To,
		TotalAmount: change.TotalAmount,
		ActorID:     change.ActorID,
		At:          change.At,
	}
}

// NewBookingStatusTask builds the asynq task for a persisted transition.
func NewBookingStatusTask(change bookings.StatusChange) (*asynq.Task, error) {
	data, err := json.Marshal(payloadFromChange(change))
	if err != nil {
		return nil, fmt.Errorf("jobs: encode booking status payload: %w", err)
	}
	return asynq.NewTask(TaskBookingStatusChanged, data), nil
}

func decodeBookingStatus(t *asynq.Task) (BookingStatusPayload, error) {
	var payload BookingStatusPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, err
	}
	if payload.BookingID == uuid.Nil || !payload.To.IsValid() {
		return payload, fmt.Errorf("jobs: incomplete booking status payload")
	}
	return payload, nil
}
