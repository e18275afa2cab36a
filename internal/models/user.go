package models

import "time"

// UserRole represents the roles recognised by the capability system.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleLibrarian UserRole = "LIBRARIAN"
	RoleViewer    UserRole = "VIEWER"
)

// Capability names an action class a role may perform.
type Capability string

const (
	CapabilityRead   Capability = "read"
	CapabilityCreate Capability = "create"
	CapabilityManage Capability = "manage"
)

var roleCapabilities = map[UserRole][]Capability{
	RoleAdmin:     {CapabilityRead, CapabilityCreate, CapabilityManage},
	RoleLibrarian: {CapabilityRead, CapabilityCreate},
	RoleViewer:    {CapabilityRead},
}

// HasCapability reports whether a role grants the named capability.
func (r UserRole) HasCapability(cap Capability) bool {
	for _, c := range roleCapabilities[r] {
		if c == cap {
			return true
		}
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	Role         UserRole  `db:"role" json:"role"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
