package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rolePtr(r Role) *Role { return &r }

func TestDecide(t *testing.T) {
	table := DefaultTable()
	cases := []struct {
		name     string
		loading  bool
		role     *Role
		required string
		want     Decision
	}{
		{"loading wins over identity", true, rolePtr(RoleAdmin), PermBookingsView, Decision{Outcome: OutcomePending}},
		{"loading without identity", true, nil, "", Decision{Outcome: OutcomePending}},
		{"no identity", false, nil, PermBookingsView, Decision{Outcome: OutcomeLoginRequired}},
		{"no identity no token", false, nil, "", Decision{Outcome: OutcomeLoginRequired}},
		{"any authenticated", false, rolePtr(RoleViewer), "", Decision{Outcome: OutcomeAllowed}},
		{"viewer cannot edit equipment", false, rolePtr(RoleViewer), PermEquipmentEdit, Decision{Outcome: OutcomeDenied, Role: RoleViewer}},
		{"operator cannot view reports", false, rolePtr(RoleOperator), PermReportsView, Decision{Outcome: OutcomeDenied, Role: RoleOperator}},
		{"unknown token denied", false, rolePtr(RoleAdmin), "rockets.launch", Decision{Outcome: OutcomeDenied, Role: RoleAdmin}},
		{"operator approves", false, rolePtr(RoleOperator), PermBookingsApprove, Decision{Outcome: OutcomeAllowed}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Decide(tc.loading, tc.role, tc.required, table))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "denied", OutcomeDenied.String())
	assert.Equal(t, "login-required", OutcomeLoginRequired.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
