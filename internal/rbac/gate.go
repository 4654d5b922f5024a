package rbac

// Outcome enumerates the states an access decision can end in.
type Outcome int

const (
	// OutcomePending means the session is still being restored.
	OutcomePending Outcome = iota
	// OutcomeLoginRequired means no identity is active.
	OutcomeLoginRequired
	// OutcomeDenied means the identity lacks the required permission.
	OutcomeDenied
	// OutcomeAllowed means the action may proceed.
	OutcomeAllowed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeLoginRequired:
		return "login-required"
	case OutcomeDenied:
		return "denied"
	case OutcomeAllowed:
		return "allowed"
	default:
		return "unknown"
	}
}

// Decision is the result of Decide. Role is set only for OutcomeDenied.
type Decision struct {
	Outcome Outcome
	Role    Role
}

// Decide evaluates access for the given session state. role is nil when no
// identity is active. An empty required token admits any identity.
func Decide(loading bool, role *Role, required string, table Table) Decision {
	switch {
	case loading:
		return Decision{Outcome: OutcomePending}
	case role == nil:
		return Decision{Outcome: OutcomeLoginRequired}
	case normalizeToken(required) == "":
		return Decision{Outcome: OutcomeAllowed}
	case !table.Allows(*role, required):
		return Decision{Outcome: OutcomeDenied, Role: *role}
	default:
		return Decision{Outcome: OutcomeAllowed}
	}
}
