package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the access level of a user account
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	// RoleUser is assigned when an account is created without an explicit role
	RoleUser Role = "user"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleUser:
		return true
	}
	return false
}

// User is an account that can sign in. PasswordHash is never serialized.
type User struct {
	ID           uuid.UUID `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Author is the projection of a user embedded in blog post reads
type Author struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
