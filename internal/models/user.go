package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleUser       UserRole = "user"
	RoleAdmin      UserRole = "admin"
	RoleSupervisor UserRole = "supervisor"
)

// User represents an application user stored in the users table.
//
// Mobile is encrypted at rest. The repository mapper is the only place that
// sees the ciphertext; MobileHash is a keyed blind index used for lookups.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        *string   `json:"email,omitempty"`
	Mobile       *string   `json:"mobile,omitempty"`
	MobileHash   *string   `json:"-"`
	PasswordHash *string   `json:"-"`
	Role         UserRole  `json:"role"`
	IsPremium    bool      `json:"is_premium"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EffectiveRole falls back to RoleUser when no role is stored.
func (u *User) EffectiveRole() UserRole {
	if u == nil || u.Role == "" {
		return RoleUser
	}
	return u.Role
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
