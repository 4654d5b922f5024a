package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/rentdesk/rentdesk/internal/rbac"
)

// Registry holds the known identities keyed by email and the hash of the
// single shared secret they log in with. It is read-only after construction.
type Registry struct {
	byEmail    map[string]Identity
	secretHash []byte
}

// DemoIdentities returns the built-in staff accounts, one per role.
func DemoIdentities() []Identity {
	return []Identity{
		{ID: "1", Email: "admin@rentdesk.local", Name: "Administrator", Role: rbac.RoleAdmin, Avatar: "/avatars/admin.png"},
		{ID: "2", Email: "operator@rentdesk.local", Name: "Operator", Role: rbac.RoleOperator, Avatar: "/avatars/operator.png"},
		{ID: "3", Email: "viewer@rentdesk.local", Name: "Viewer", Role: rbac.RoleViewer},
	}
}

// NewRegistry hashes secret and indexes identities by normalized email.
// bcrypt reads at most 72 bytes, so the secret is reduced to its SHA-256
// digest first and every byte of it takes part in the comparison.
func NewRegistry(secret string, identities ...Identity) (*Registry, error) {
	if secret == "" {
		return nil, errors.New("auth: shared secret required")
	}
	hash, err := bcrypt.GenerateFromPassword(secretDigest(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash secret: %w", err)
	}
	byEmail := make(map[string]Identity, len(identities))
	for _, identity := range identities {
		if err := identity.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		key := normalizeEmail(identity.Email)
		if _, dup := byEmail[key]; dup {
			return nil, fmt.Errorf("%w: duplicate email %s", ErrInvalidIdentity, key)
		}
		byEmail[key] = identity
	}
	return &Registry{byEmail: byEmail, secretHash: hash}, nil
}

func (r *Registry) lookup(email string) (Identity, bool) {
	if r == nil {
		return Identity{}, false
	}
	identity, ok := r.byEmail[normalizeEmail(email)]
	return identity, ok
}

// Authenticate returns the identity for email when secret matches the
// shared secret. The secret is compared even for unknown emails.
func (r *Registry) Authenticate(email, secret string) (Identity, bool) {
	if r == nil {
		return Identity{}, false
	}
	identity, known := r.lookup(email)
	match := bcrypt.CompareHashAndPassword(r.secretHash, secretDigest(secret)) == nil
	if !known || !match {
		return Identity{}, false
	}
	return identity, true
}

func secretDigest(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return []byte(hex.EncodeToString(sum[:]))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
