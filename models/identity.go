package models

// Role is the caller role established by the external auth collaborator
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleCustomer  Role = "customer"
)

// Identity is the caller of a core operation: an authenticated user id or an
// anonymous session id, plus the role granted to it.
type Identity struct {
	UserID    string
	SessionID string
	Role      Role
}

// IsAuthenticated reports whether the identity belongs to a signed-in user
func (i Identity) IsAuthenticated() bool {
	return i.UserID != ""
}

// IsAnonymous reports whether neither a user nor a session is known
func (i Identity) IsAnonymous() bool {
	return i.UserID == "" && i.SessionID == ""
}

// Key returns a stable string identifying the caller for audit columns
func (i Identity) Key() string {
	if i.UserID != "" {
		return "user:" + i.UserID
	}
	if i.SessionID != "" {
		return "session:" + i.SessionID
	}
	return "anonymous"
}
