package auth

import "time"

// Privilege is an atomic capability code gating one action.
type Privilege struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Module            string    `json:"module"`
	ModuleDisplayName string    `json:"moduleDisplayName"`
	IsActive          bool      `json:"isActive"`
	Essential         bool      `json:"essential"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Role bundles privileges. Protected roles are write-once.
type Role struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	PrivilegeIDs []string  `json:"-"`
	IsActive     bool      `json:"isActive"`
	Protected    bool      `json:"protected"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// User is a login account. PasswordHash never leaves the process.
type User struct {
	ID                   string     `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"-"`
	RoleID               string     `json:"roleId"`
	IsActive             bool       `json:"isActive"`
	FullName             string     `json:"fullName,omitempty"`
	LastLogin            *time.Time `json:"lastLogin"`
	ResetPasswordToken   *string    `json:"-"`
	ResetPasswordExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// RoleView is a role with its privileges expanded.
type RoleView struct {
	Role
	Privileges []Privilege `json:"privileges"`
}

// UserView is a user with its role and the role's privileges expanded.
type UserView struct {
	User
	Role RoleView `json:"role"`
}

// PrivilegeUpdate carries optional privilege changes.
type PrivilegeUpdate struct {
	Code              *string
	Name              *string
	Description       *string
	Module            *string
	ModuleDisplayName *string
	IsActive          *bool
}

// RoleUpdate carries optional role changes. A nil PrivilegeIDs leaves the set untouched.
type RoleUpdate struct {
	Name         *string
	Description  *string
	PrivilegeIDs *[]string
	IsActive     *bool
}

// UserUpdate carries optional user changes. Password is plaintext on input;
// the service replaces it with a digest before it reaches a store.
type UserUpdate struct {
	Username *string
	Email    *string
	Password *string
	RoleID   *string
	IsActive *bool
	FullName *string
}

// NewUser is the input for user creation. IsActive defaults to true when nil.
type NewUser struct {
	Username string
	Email    string
	Password string
	RoleID   string
	FullName string
	IsActive *bool
}
