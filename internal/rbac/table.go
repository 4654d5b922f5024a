// Package rbac holds the role to permission table and the access gate
// evaluated in front of every protected route.
package rbac

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role names a bundle of permission tokens.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Roles returns the known roles in display order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleOperator, RoleViewer}
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// ErrInvalidTable is returned when a role table definition is rejected.
var ErrInvalidTable = errors.New("rbac: invalid role table")

// Table is an immutable role to permission mapping. The zero value denies
// everything.
type Table struct {
	sets map[Role]map[string]struct{}
}

// NewTable copies def into a Table. Every known role must be present and
// every token non-empty.
func NewTable(def map[Role][]string) (Table, error) {
	sets := make(map[Role]map[string]struct{}, len(def))
	for role, perms := range def {
		if !role.IsValid() {
			return Table{}, fmt.Errorf("%w: unknown role %q", ErrInvalidTable, role)
		}
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			p = normalizeToken(p)
			if p == "" {
				return Table{}, fmt.Errorf("%w: empty permission for role %s", ErrInvalidTable, role)
			}
			set[p] = struct{}{}
		}
		sets[role] = set
	}
	for _, role := range Roles() {
		if _, ok := sets[role]; !ok {
			return Table{}, fmt.Errorf("%w: missing role %s", ErrInvalidTable, role)
		}
	}
	return Table{sets: sets}, nil
}

// DefaultTable returns the built-in role table. Operator and viewer are not
// subsets of each other; membership is checked per role.
func DefaultTable() Table {
	table, err := NewTable(map[Role][]string{
		RoleAdmin: AllPermissions(),
		RoleOperator: {
			PermEquipmentView,
			PermEquipmentEdit,
			PermBookingsView,
			PermBookingsCreate,
			PermBookingsApprove,
			PermBookingsReject,
			PermClientsView,
			PermClientsEdit,
			PermChatAccess,
			PermGPSView,
		},
		RoleViewer: {
			PermEquipmentView,
			PermBookingsView,
			PermClientsView,
			PermReportsView,
		},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// ParseTable decodes a YAML document mapping role names to token lists.
func ParseTable(data []byte) (Table, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	def := make(map[Role][]string, len(raw))
	for name, perms := range raw {
		def[Role(strings.TrimSpace(strings.ToLower(name)))] = perms
	}
	return NewTable(def)
}

// LoadTable reads the role table from path, or returns DefaultTable when
// path is empty.
func LoadTable(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, fmt.Errorf("rbac: read table: %w", err)
	}
	return ParseTable(data)
}

// Allows reports whether token is granted to role. Unknown roles and
// unknown tokens are denied.
func (t Table) Allows(role Role, token string) bool {
	set, ok := t.sets[role]
	if !ok {
		return false
	}
	_, ok = set[normalizeToken(token)]
	return ok
}

// Permissions returns a sorted copy of the tokens granted to role.
func (t Table) Permissions(role Role) []string {
	set := t.sets[role]
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}

func normalizeToken(p string) string {
	return strings.TrimSpace(strings.ToLower(p))
}
