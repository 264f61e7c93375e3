package auth

import "time"

// Role is the coarse permission grouping assigned to a user account.
type Role string

const (
	// RoleAdmin may manage users and see every task.
	RoleAdmin Role = "admin"
	// RoleUser is the default role for regular accounts.
	RoleUser Role = "user"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Principal is the identity resolved from a session token. It is derived,
// never persisted standalone.
type Principal struct {
	ID       int64
	Username string
	Role     Role
	IsActive bool
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// User represents a stored user account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	FirstName    string
	LastName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal projects the account into its request-scoped identity.
func (u User) Principal() Principal {
	return Principal{ID: u.ID, Username: u.Username, Role: u.Role, IsActive: u.IsActive}
}

// Session is a single issued credential. The token is opaque to clients and
// valid until ExpiresAt; the TTL is fixed at creation and never slides.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}
