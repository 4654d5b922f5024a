// Package auth owns the session identity and answers permission checks for
// it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rentdesk/rentdesk/internal/rbac"
)

// AuthorityOptions tunes an Authority.
type AuthorityOptions struct {
	Logger *slog.Logger
	// LoginDelay simulates the round trip of a remote credential check.
	LoginDelay time.Duration
}

// Authority holds the identity of a single session. Permission checks are
// pure reads; Login, Logout and Restore touch the durable slot.
type Authority struct {
	registry *Registry
	table    rbac.Table
	slot     Slot
	logger   *slog.Logger
	delay    time.Duration

	mu       sync.RWMutex
	identity *Identity
	loading  bool
}

// NewAuthority returns an Authority in the loading state. Call Restore to
// resolve any persisted session.
func NewAuthority(registry *Registry, table rbac.Table, slot Slot, opts AuthorityOptions) *Authority {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authority{
		registry: registry,
		table:    table,
		slot:     slot,
		logger:   logger,
		delay:    opts.LoginDelay,
		loading:  true,
	}
}

// Restore loads a previously persisted identity. Missing or unusable
// records leave the authority logged out; Restore never fails.
func (a *Authority) Restore(ctx context.Context) {
	defer a.setLoading(false)
	if a.slot == nil {
		return
	}
	raw, err := a.slot.Load(ctx)
	if err != nil {
		a.logger.Warn("restore session", slog.Any("error", err))
		return
	}
	if raw == "" {
		return
	}
	identity, err := decodeRecord(raw)
	if err != nil {
		a.logger.Warn("discard session", slog.Any("error", err))
		if clearErr := a.slot.Clear(ctx); clearErr != nil {
			a.logger.Warn("clear corrupt session", slog.Any("error", clearErr))
		}
		return
	}
	a.mu.Lock()
	a.identity = &identity
	a.mu.Unlock()
}

// Login checks email and secret against the registry. A mismatch returns
// false with a nil error. The error is reserved for a cancelled context or a
// failed write to the slot; in both cases the identity is left untouched.
func (a *Authority) Login(ctx context.Context, email, secret string) (bool, error) {
	a.setLoading(true)
	defer a.setLoading(false)

	if a.delay > 0 {
		timer := time.NewTimer(a.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	identity, ok := a.registry.Authenticate(email, secret)
	if !ok {
		a.logger.Info("login rejected", slog.String("email", normalizeEmail(email)))
		return false, nil
	}
	if a.slot == nil {
		return false, errors.New("auth: no session slot")
	}
	record, err := encodeRecord(identity)
	if err != nil {
		return false, err
	}
	if err := a.slot.Save(ctx, record); err != nil {
		return false, fmt.Errorf("auth: persist session: %w", err)
	}

	a.mu.Lock()
	a.identity = &identity
	a.mu.Unlock()
	a.logger.Info("login", slog.String("user_id", identity.ID), slog.String("role", string(identity.Role)))
	return true, nil
}

// Logout clears the identity and the slot. It is a no-op when logged out.
func (a *Authority) Logout(ctx context.Context) {
	a.mu.Lock()
	a.identity = nil
	a.mu.Unlock()
	if a.slot == nil {
		return
	}
	if err := a.slot.Clear(ctx); err != nil {
		a.logger.Warn("clear session", slog.Any("error", err))
	}
}

// HasPermission reports whether the active identity's role grants token.
// It is false without an identity and for unknown tokens.
func (a *Authority) HasPermission(token string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.identity == nil {
		return false
	}
	return a.table.Allows(a.identity.Role, token)
}

// Permissions lists the tokens granted to the active identity.
func (a *Authority) Permissions() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.identity == nil {
		return nil
	}
	return a.table.Permissions(a.identity.Role)
}

// Identity returns a copy of the active identity.
func (a *Authority) Identity() (Identity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.identity == nil {
		return Identity{}, false
	}
	return *a.identity, true
}

// Loading reports whether a restore or login is in flight.
func (a *Authority) Loading() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.loading
}

// Decide runs the access gate for required against the current state.
func (a *Authority) Decide(required string) rbac.Decision {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var role *rbac.Role
	if a.identity != nil {
		r := a.identity.Role
		role = &r
	}
	return rbac.Decide(a.loading, role, required, a.table)
}

func (a *Authority) setLoading(v bool) {
	a.mu.Lock()
	a.loading = v
	a.mu.Unlock()
}
