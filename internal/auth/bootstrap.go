package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// BootstrapAdmin describes the optional first administrator account.
type BootstrapAdmin struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Bootstrap seeds the privilege catalog, the protected superadmin role holding
// every catalog privilege, and optionally an administrator. It is idempotent.
func (s *RBACService) Bootstrap(ctx context.Context, admin *BootstrapAdmin) (Role, error) {
	privIDs := make([]string, 0, len(BuiltinPrivileges))
	for _, p := range BuiltinPrivileges {
		p.IsActive = true
		p.ModuleDisplayName = ModuleDisplayName(p.Module)
		created, err := s.dir.CreatePrivilege(ctx, p)
		if errors.Is(err, ErrConflict) {
			created, err = s.dir.GetPrivilegeByCode(ctx, p.Code)
		}
		if err != nil {
			return Role{}, fmt.Errorf("seed privilege %s: %w", p.Code, err)
		}
		privIDs = append(privIDs, created.ID)
	}

	role, err := s.dir.CreateRole(ctx, Role{
		Name:         SuperadminRole,
		Description:  "Full system access",
		PrivilegeIDs: privIDs,
		IsActive:     true,
		Protected:    true,
	})
	if errors.Is(err, ErrConflict) {
		role, err = s.dir.GetRoleByName(ctx, SuperadminRole)
	}
	if err != nil {
		return Role{}, fmt.Errorf("seed superadmin role: %w", err)
	}

	if admin == nil || strings.TrimSpace(admin.Username) == "" {
		return role, nil
	}
	if _, err := s.dir.GetUserByUsername(ctx, strings.TrimSpace(admin.Username)); err == nil {
		return role, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Role{}, err
	}
	_, err = s.CreateUser(ctx, NewUser{
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
		RoleID:   role.ID,
		FullName: admin.FullName,
	})
	if err != nil && !errors.Is(err, ErrConflict) {
		return Role{}, fmt.Errorf("seed admin user: %w", err)
	}
	return role, nil
}
