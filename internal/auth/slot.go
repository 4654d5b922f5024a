package auth

import (
	"context"
	"errors"

	"github.com/rentdesk/rentdesk/internal/shared"
)

// SlotKey names the session value holding the persisted identity.
const SlotKey = "rentdesk.identity"

// Slot is the durable single-value store an Authority persists its identity
// in. Load returns an empty string when nothing is stored.
type Slot interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, value string) error
	Clear(ctx context.Context) error
}

// SessionSlot stores the identity inside a Redis-backed cookie session.
// Save writes through to Redis under a new session ID, so a successful Save
// is durable and a session ID seen before login never carries the identity.
type SessionSlot struct {
	sess     *shared.Session
	sessions *shared.SessionManager
}

// NewSessionSlot wraps sess, persisting saves through sessions.
func NewSessionSlot(sess *shared.Session, sessions *shared.SessionManager) SessionSlot {
	return SessionSlot{sess: sess, sessions: sessions}
}

var (
	errNoSession      = errors.New("auth: no session attached")
	errNoSessionStore = errors.New("auth: no session store")
)

// Load implements Slot.
func (s SessionSlot) Load(context.Context) (string, error) {
	if s.sess == nil {
		return "", nil
	}
	return s.sess.Get(SlotKey), nil
}

// Save implements Slot. On failure the session keeps its previous value.
func (s SessionSlot) Save(ctx context.Context, value string) error {
	if s.sess == nil {
		return errNoSession
	}
	if s.sessions == nil {
		return errNoSessionStore
	}
	previous := s.sess.Get(SlotKey)
	s.sess.Set(SlotKey, value)
	if err := s.sessions.Regenerate(ctx, s.sess); err != nil {
		if previous == "" {
			s.sess.Delete(SlotKey)
		} else {
			s.sess.Set(SlotKey, previous)
		}
		return err
	}
	return nil
}

// Clear implements Slot.
func (s SessionSlot) Clear(context.Context) error {
	if s.sess == nil {
		return nil
	}
	s.sess.Delete(SlotKey)
	return nil
}

var _ Slot = SessionSlot{}
