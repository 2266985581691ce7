package domain

// Role names the authorization class of a principal.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Principal is the authenticated caller as vouched for by the identity provider.
type Principal struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the principal may see and triage every ticket.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
