package domain

type Role string

const (
	// Employee is the default role for every registered account.
	RoleEmployee Role = "employee"
	// Admin can manage other accounts, including deleting them.
	RoleAdmin Role = "admin"
)

// ParseRole accepts only the exact lower-case role names.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleEmployee, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// CanManage reports whether an actor with this role may act on the account
// targetID on behalf of actorID.
func (r Role) CanManage(actorID, targetID string) bool {
	return r == RoleAdmin || (actorID != "" && actorID == targetID)
}
