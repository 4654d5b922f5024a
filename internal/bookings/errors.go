package bookings

import (
	"errors"
	"fmt"

	"github.com/rentdesk/rentdesk/internal/platform/httpx"
	"github.com/rentdesk/rentdesk/internal/rbac"
)

// Domain errors for bookings.
var (
	// ErrNotFound indicates the requested booking was not found.
	ErrNotFound = fmt.Errorf("booking %w", httpx.ErrNotFound)
	// ErrInvalidTransition indicates a status change no permission can unlock.
	ErrInvalidTransition = errors.New("invalid booking status transition")
	// ErrPermissionDenied indicates a legal transition the caller may not trigger.
	ErrPermissionDenied = errors.New("permission denied for booking transition")
	// ErrConflict indicates the stored status changed while a transition was in flight.
	ErrConflict = fmt.Errorf("booking status changed concurrently: %w", httpx.ErrConflict)
	// ErrValidation wraps rejected booking payloads.
	ErrValidation = fmt.Errorf("booking %w", httpx.ErrValidation)
)

// TransitionError describes a rejected transition. It matches
// ErrInvalidTransition or ErrPermissionDenied through errors.Is.
type TransitionError struct {
	From       Status
	To         Status
	Permission string
	Role       rbac.Role
	Err        error
}

func (e *TransitionError) Error() string {
	if e.Permission != "" {
		return fmt.Sprintf("%s -> %s requires %s: %v", e.From, e.To, e.Permission, e.Err)
	}
	return fmt.Sprintf("%s -> %s: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
