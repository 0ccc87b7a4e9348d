package models

import (
	"time"
)

// Role is a platform role; the first three are also assignment roles
type Role string

const (
	RoleTranslator Role = "Translator"
	RoleReviewer   Role = "Reviewer"
	RoleSupervisor Role = "Supervisor"
	RoleManager    Role = "Manager"
	RoleDataEntry  Role = "DataEntry"
)

// Valid returns true for known platform roles
func (r Role) Valid() bool {
	switch r {
	case RoleTranslator, RoleReviewer, RoleSupervisor, RoleManager, RoleDataEntry:
		return true
	}
	return false
}

// Assignable returns true if work can be assigned under this role
func (r Role) Assignable() bool {
	return r == RoleTranslator || r == RoleReviewer || r == RoleSupervisor
}

// User represents an authenticated platform user
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasRole checks if the user holds any of the given roles.
// Managers pass every role check.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil || !u.IsActive {
		return false
	}

	if u.Role == RoleManager {
		return true
	}

	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}

	return false
}
