package bookings

import "github.com/rentdesk/rentdesk/internal/rbac"

// PermissionChecker answers whether the caller holds a permission token.
type PermissionChecker func(token string) bool

type edge struct {
	from Status
	to   Status
}

// transitions is the complete set of legal status changes and the
// permission each one requires. Anything absent is invalid.
var transitions = map[edge]string{
	{StatusPending, StatusConfirmed}:   rbac.PermBookingsApprove,
	{StatusPending, StatusCancelled}:   rbac.PermBookingsReject,
	{StatusConfirmed, StatusCancelled}: rbac.PermBookingsReject,
	{StatusConfirmed, StatusActive}:    rbac.PermBookingsApprove,
	{StatusActive, StatusCompleted}:    rbac.PermBookingsApprove,
}

// RequiredPermission returns the permission guarding from → to, and false
// when the pair is not a legal transition.
func RequiredPermission(from, to Status) (string, bool) {
	perm, ok := transitions[edge{from, to}]
	return perm, ok
}

// Transition validates moving b to target and returns the resulting status.
// Requesting the current status is a no-op success. The result is
// provisional: nothing is stored until the caller persists it.
func Transition(b Booking, target Status, can PermissionChecker) (Status, error) {
	if b.Status == target {
		return b.Status, nil
	}
	perm, ok := RequiredPermission(b.Status, target)
	if !ok {
		return b.Status, &TransitionError{From: b.Status, To: target, Err: ErrInvalidTransition}
	}
	if can == nil || !can(perm) {
		return b.Status, &TransitionError{From: b.Status, To: target, Permission: perm, Err: ErrPermissionDenied}
	}
	return target, nil
}

// AllowedTransitions lists the targets reachable from status that can
// unlocks, in lifecycle order.
func AllowedTransitions(status Status, can PermissionChecker) []Status {
	var allowed []Status
	for _, target := range Statuses() {
		perm, ok := RequiredPermission(status, target)
		if ok && can != nil && can(perm) {
			allowed = append(allowed, target)
		}
	}
	return allowed
}
