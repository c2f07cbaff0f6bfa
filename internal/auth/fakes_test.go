package auth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// memDirectory is a mutex-guarded Directory with the same uniqueness rules as the SQL schema.
type memDirectory struct {
	mu         sync.Mutex
	seq        int
	users      map[string]User
	roles      map[string]Role
	privileges map[string]Privilege
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		users:      map[string]User{},
		roles:      map[string]Role{},
		privileges: map[string]Privilege{},
	}
}

func (m *memDirectory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memDirectory) CreateUser(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Username == u.Username {
			return User{}, &ConflictError{Entity: "user", Field: "username"}
		}
		if other.Email == u.Email {
			return User{}, &ConflictError{Entity: "user", Field: "email"}
		}
	}
	u.ID = m.nextID("user")
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return u, nil
}

func (m *memDirectory) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memDirectory) GetUserByUsername(_ context.Context, username string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memDirectory) ListUsers(context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memDirectory) UpdateUser(_ context.Context, id string, upd UserUpdate) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	for oid, other := range m.users {
		if oid == id {
			continue
		}
		if upd.Username != nil && other.Username == *upd.Username {
			return User{}, &ConflictError{Entity: "user", Field: "username"}
		}
		if upd.Email != nil && other.Email == *upd.Email {
			return User{}, &ConflictError{Entity: "user", Field: "email"}
		}
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Password != nil {
		u.PasswordHash = *upd.Password
	}
	if upd.RoleID != nil {
		u.RoleID = *upd.RoleID
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	u.UpdatedAt = time.Now().UTC()
	m.users[id] = u
	return u, nil
}

func (m *memDirectory) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

func (m *memDirectory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memDirectory) CreateRole(_ context.Context, r Role) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.roles {
		if other.Name == r.Name {
			return Role{}, &ConflictError{Entity: "role", Field: "name"}
		}
	}
	r.ID = m.nextID("role")
	r.PrivilegeIDs = append([]string(nil), r.PrivilegeIDs...)
	m.roles[r.ID] = r
	return r, nil
}

func (m *memDirectory) GetRole(_ context.Context, id string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (m *memDirectory) GetRoleByName(_ context.Context, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return Role{}, ErrNotFound
}

func (m *memDirectory) ListRoles(context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memDirectory) UpdateRole(_ context.Context, id string, upd RoleUpdate) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	if upd.Name != nil {
		for oid, other := range m.roles {
			if oid != id && other.Name == *upd.Name {
				return Role{}, &ConflictError{Entity: "role", Field: "name"}
			}
		}
		r.Name = *upd.Name
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.PrivilegeIDs != nil {
		r.PrivilegeIDs = append([]string(nil), (*upd.PrivilegeIDs)...)
	}
	if upd.IsActive != nil {
		r.IsActive = *upd.IsActive
	}
	m.roles[id] = r
	return r, nil
}

func (m *memDirectory) DeleteRole(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *memDirectory) RolePrivileges(_ context.Context, roleID string) ([]Privilege, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.roles[roleID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]Privilege, 0, len(r.PrivilegeIDs))
	for _, id := range r.PrivilegeIDs {
		if p, ok := m.privileges[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memDirectory) CreatePrivilege(_ context.Context, p Privilege) (Privilege, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.privileges {
		if other.Code == p.Code {
			return Privilege{}, &ConflictError{Entity: "privilege", Field: "code"}
		}
		if other.Name == p.Name {
			return Privilege{}, &ConflictError{Entity: "privilege", Field: "name"}
		}
	}
	p.ID = m.nextID("priv")
	m.privileges[p.ID] = p
	return p, nil
}

func (m *memDirectory) GetPrivilege(_ context.Context, id string) (Privilege, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.privileges[id]
	if !ok {
		return Privilege{}, ErrNotFound
	}
	return p, nil
}

func (m *memDirectory) GetPrivilegeByCode(_ context.Context, code string) (Privilege, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.privileges {
		if p.Code == code {
			return p, nil
		}
	}
	return Privilege{}, ErrNotFound
}

func (m *memDirectory) ListPrivileges(context.Context) ([]Privilege, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Privilege, 0, len(m.privileges))
	for _, p := range m.privileges {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memDirectory) FindPrivileges(_ context.Context, ids []string) ([]Privilege, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Privilege
	for _, id := range ids {
		if p, ok := m.privileges[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memDirectory) UpdatePrivilege(_ context.Context, id string, upd PrivilegeUpdate) (Privilege, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.privileges[id]
	if !ok {
		return Privilege{}, ErrNotFound
	}
	for oid, other := range m.privileges {
		if oid == id {
			continue
		}
		if upd.Code != nil && other.Code == *upd.Code {
			return Privilege{}, &ConflictError{Entity: "privilege", Field: "code"}
		}
		if upd.Name != nil && other.Name == *upd.Name {
			return Privilege{}, &ConflictError{Entity: "privilege", Field: "name"}
		}
	}
	if upd.Code != nil {
		p.Code = *upd.Code
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Module != nil {
		p.Module = *upd.Module
	}
	if upd.ModuleDisplayName != nil {
		p.ModuleDisplayName = *upd.ModuleDisplayName
	}
	if upd.IsActive != nil {
		p.IsActive = *upd.IsActive
	}
	m.privileges[id] = p
	return p, nil
}

func (m *memDirectory) DeletePrivilege(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.privileges[id]; !ok {
		return ErrNotFound
	}
	delete(m.privileges, id)
	return nil
}
