package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var privilegeCodeRe = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z0-9_]+)*$`)

// RBACService manages privileges, roles and users, enforcing the protections
// on essential privileges and the superadmin role.
type RBACService struct {
	dir    Directory
	hasher Hasher
}

func NewRBACService(dir Directory, hasher Hasher) (*RBACService, error) {
	if dir == nil {
		return nil, errors.New("rbac directory is required")
	}
	if hasher == nil {
		return nil, errors.New("rbac hasher is required")
	}
	return &RBACService{dir: dir, hasher: hasher}, nil
}

// --- privileges ---

func (s *RBACService) CreatePrivilege(ctx context.Context, p Privilege) (Privilege, error) {
	p.Code = strings.TrimSpace(strings.ToLower(p.Code))
	p.Name = strings.TrimSpace(p.Name)
	p.Module = strings.TrimSpace(strings.ToLower(p.Module))
	p.Description = strings.TrimSpace(p.Description)
	if !privilegeCodeRe.MatchString(p.Code) {
		return Privilege{}, fmt.Errorf("%w: Privilege code must be a lowercase dotted slug", ErrInvalidInput)
	}
	if p.Name == "" {
		return Privilege{}, fmt.Errorf("%w: Privilege name is required", ErrInvalidInput)
	}
	if p.Module == "" {
		return Privilege{}, fmt.Errorf("%w: Privilege module is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.ModuleDisplayName) == "" {
		p.ModuleDisplayName = ModuleDisplayName(p.Module)
	}
	return s.dir.CreatePrivilege(ctx, p)
}

func (s *RBACService) ListPrivileges(ctx context.Context) ([]Privilege, error) {
	return s.dir.ListPrivileges(ctx)
}

func (s *RBACService) GetPrivilege(ctx context.Context, id string) (Privilege, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Privilege{}, fmt.Errorf("%w: privilege id is required", ErrInvalidInput)
	}
	return s.dir.GetPrivilege(ctx, id)
}

// UpdatePrivilege applies upd. For essential privileges only description and
// isActive may change; a differing code, name, module or module display name
// is rejected.
func (s *RBACService) UpdatePrivilege(ctx context.Context, id string, upd PrivilegeUpdate) (Privilege, error) {
	existing, err := s.GetPrivilege(ctx, id)
	if err != nil {
		return Privilege{}, err
	}
	if upd.Code != nil {
		code := strings.TrimSpace(strings.ToLower(*upd.Code))
		if !privilegeCodeRe.MatchString(code) {
			return Privilege{}, fmt.Errorf("%w: Privilege code must be a lowercase dotted slug", ErrInvalidInput)
		}
		upd.Code = &code
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Privilege{}, fmt.Errorf("%w: Privilege name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Module != nil {
		module := strings.TrimSpace(strings.ToLower(*upd.Module))
		if module == "" {
			return Privilege{}, fmt.Errorf("%w: Privilege module is required", ErrInvalidInput)
		}
		upd.Module = &module
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		upd.Description = &desc
	}
	if upd.ModuleDisplayName != nil {
		display := strings.TrimSpace(*upd.ModuleDisplayName)
		upd.ModuleDisplayName = &display
	}

	if existing.Essential {
		switch {
		case changed(upd.Code, existing.Code):
			return Privilege{}, fmt.Errorf("%w: Cannot modify the code of an essential privilege", ErrForbidden)
		case changed(upd.Name, existing.Name):
			return Privilege{}, fmt.Errorf("%w: Cannot modify the name of an essential privilege", ErrForbidden)
		case changed(upd.Module, existing.Module):
			return Privilege{}, fmt.Errorf("%w: Cannot modify the module of an essential privilege", ErrForbidden)
		case changed(upd.ModuleDisplayName, existing.ModuleDisplayName):
			return Privilege{}, fmt.Errorf("%w: Cannot modify the module display name of an essential privilege", ErrForbidden)
		}
		upd.Code, upd.Name, upd.Module, upd.ModuleDisplayName = nil, nil, nil, nil
	} else if upd.Module != nil && upd.ModuleDisplayName == nil {
		display := ModuleDisplayName(*upd.Module)
		upd.ModuleDisplayName = &display
	}
	return s.dir.UpdatePrivilege(ctx, existing.ID, upd)
}

func (s *RBACService) DeletePrivilege(ctx context.Context, id string) error {
	existing, err := s.GetPrivilege(ctx, id)
	if err != nil {
		return err
	}
	if existing.Essential {
		return fmt.Errorf("%w: Cannot delete an essential privilege", ErrForbidden)
	}
	return s.dir.DeletePrivilege(ctx, existing.ID)
}

// --- roles ---

// CreateRole validates that every referenced privilege exists. An empty
// privilege set is accepted here, unlike UpdateRole.
func (s *RBACService) CreateRole(ctx context.Context, name, description string, privilegeIDs []string, isActive *bool) (RoleView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return RoleView{}, fmt.Errorf("%w: Role name is required", ErrInvalidInput)
	}
	ids := dedupeStrings(privilegeIDs)
	if err := s.ensurePrivilegesExist(ctx, ids); err != nil {
		return RoleView{}, err
	}
	active := true
	if isActive != nil {
		active = *isActive
	}
	role, err := s.dir.CreateRole(ctx, Role{
		Name:         name,
		Description:  strings.TrimSpace(description),
		PrivilegeIDs: ids,
		IsActive:     active,
	})
	if err != nil {
		return RoleView{}, err
	}
	return s.roleView(ctx, role)
}

func (s *RBACService) ListRoles(ctx context.Context) ([]RoleView, error) {
	roles, err := s.dir.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleView, 0, len(roles))
	for _, r := range roles {
		view, err := s.roleView(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, view)
	}
	return out, nil
}

func (s *RBACService) GetRole(ctx context.Context, id string) (RoleView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return RoleView{}, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	role, err := s.dir.GetRole(ctx, id)
	if err != nil {
		return RoleView{}, err
	}
	return s.roleView(ctx, role)
}

// UpdateRole rejects every mutation of a protected role, and rejects an
// explicitly empty privilege set.
func (s *RBACService) UpdateRole(ctx context.Context, id string, upd RoleUpdate) (RoleView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return RoleView{}, fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	existing, err := s.dir.GetRole(ctx, id)
	if err != nil {
		return RoleView{}, err
	}
	if existing.Protected {
		switch {
		case upd.Name != nil:
			return RoleView{}, fmt.Errorf("%w: Cannot modify the name of the superadmin role", ErrForbidden)
		case upd.Description != nil:
			return RoleView{}, fmt.Errorf("%w: Cannot modify the description of the superadmin role", ErrForbidden)
		case upd.PrivilegeIDs != nil:
			return RoleView{}, fmt.Errorf("%w: Cannot modify the privileges of the superadmin role", ErrForbidden)
		case upd.IsActive != nil:
			return RoleView{}, fmt.Errorf("%w: Cannot change the active status of the superadmin role", ErrForbidden)
		}
		return s.roleView(ctx, existing)
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return RoleView{}, fmt.Errorf("%w: Role name is required", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Description != nil {
		desc := strings.TrimSpace(*upd.Description)
		upd.Description = &desc
	}
	if upd.PrivilegeIDs != nil {
		ids := dedupeStrings(*upd.PrivilegeIDs)
		if len(ids) == 0 {
			return RoleView{}, fmt.Errorf("%w: Role must have at least one privilege", ErrInvalidInput)
		}
		if err := s.ensurePrivilegesExist(ctx, ids); err != nil {
			return RoleView{}, err
		}
		upd.PrivilegeIDs = &ids
	}
	role, err := s.dir.UpdateRole(ctx, existing.ID, upd)
	if err != nil {
		return RoleView{}, err
	}
	return s.roleView(ctx, role)
}

func (s *RBACService) DeleteRole(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	existing, err := s.dir.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if existing.Protected {
		return fmt.Errorf("%w: Cannot delete the superadmin role", ErrForbidden)
	}
	return s.dir.DeleteRole(ctx, existing.ID)
}

func (s *RBACService) ensurePrivilegesExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.dir.FindPrivileges(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return fmt.Errorf("%w: One or more privileges do not exist", ErrInvalidInput)
	}
	return nil
}

func (s *RBACService) roleView(ctx context.Context, role Role) (RoleView, error) {
	privs, err := s.dir.RolePrivileges(ctx, role.ID)
	if err != nil {
		return RoleView{}, err
	}
	return RoleView{Role: role, Privileges: privs}, nil
}

func changed(v *string, current string) bool {
	return v != nil && *v != current
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
