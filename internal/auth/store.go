package auth

import (
	"context"
	"time"
)

// UserStore persists users. Username and email uniqueness is enforced by the
// store itself; violations surface as *ConflictError.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// UpdateUser applies upd; upd.Password, when set, is already a digest.
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	DeleteUser(ctx context.Context, id string) error
}

// RoleStore persists roles and the role-privilege association.
type RoleStore interface {
	CreateRole(ctx context.Context, r Role) (Role, error)
	GetRole(ctx context.Context, id string) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	UpdateRole(ctx context.Context, id string, upd RoleUpdate) (Role, error)
	DeleteRole(ctx context.Context, id string) error
	RolePrivileges(ctx context.Context, roleID string) ([]Privilege, error)
}

// PrivilegeStore persists the privilege catalog.
type PrivilegeStore interface {
	CreatePrivilege(ctx context.Context, p Privilege) (Privilege, error)
	GetPrivilege(ctx context.Context, id string) (Privilege, error)
	GetPrivilegeByCode(ctx context.Context, code string) (Privilege, error)
	ListPrivileges(ctx context.Context) ([]Privilege, error)
	// FindPrivileges returns the privileges among ids that exist.
	FindPrivileges(ctx context.Context, ids []string) ([]Privilege, error)
	UpdatePrivilege(ctx context.Context, id string, upd PrivilegeUpdate) (Privilege, error)
	DeletePrivilege(ctx context.Context, id string) error
}

// Directory is the full persistence surface used by the services.
type Directory interface {
	UserStore
	RoleStore
	PrivilegeStore
}
