package auth

import (
	"errors"

	"github.com/rentdesk/rentdesk/internal/rbac"
)

// Identity is the authenticated user active for a session.
type Identity struct {
	ID     string    `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	Role   rbac.Role `json:"role"`
	Avatar string    `json:"avatar,omitempty"`
}

var (
	// ErrInvalidCredentials indicates a login attempt that did not match.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrSessionCorrupt indicates a persisted identity that cannot be used.
	// It never escapes Restore.
	ErrSessionCorrupt = errors.New("auth: session record corrupt")
	// ErrInvalidIdentity is returned when a registry entry is malformed.
	ErrInvalidIdentity = errors.New("auth: invalid identity")
)

func (i Identity) validate() error {
	switch {
	case i.ID == "":
		return errors.New("id required")
	case i.Email == "":
		return errors.New("email required")
	case !i.Role.IsValid():
		return errors.New("unknown role " + string(i.Role))
	}
	return nil
}
