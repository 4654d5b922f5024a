// Package bookings owns rental bookings and their status lifecycle.
package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle of a rental booking.
type Status string

const (
	StatusPending   Status = "pending"   // Requested, awaiting approval
	StatusConfirmed Status = "confirmed" // Approved, equipment reserved
	StatusActive    Status = "active"    // Equipment out with the client
	StatusCompleted Status = "completed" // Equipment returned
	StatusCancelled Status = "cancelled" // Withdrawn before pickup
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled}
}

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusActive, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Booking links a client and an equipment item over a date range.
type Booking struct {
	ID          uuid.UUID `json:"id"`
	ClientID    int64     `json:"client_id"`
	EquipmentID int64     `json:"equipment_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      Status    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest represents request to create a booking.
type CreateRequest struct {
	ClientID    int64     `json:"client_id" validate:"required,gt=0"`
	EquipmentID int64     `json:"equipment_id" validate:"required,gt=0"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	TotalAmount float64   `json:"total_amount" validate:"gte=0"`
	Notes       *string   `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// TransitionRequest asks for a booking to move to Status.
type TransitionRequest struct {
	Status Status `json:"status" validate:"required"`
}

// ListRequest filters a booking listing.
type ListRequest struct {
	Status *Status
	Limit  int
	Offset int
}
