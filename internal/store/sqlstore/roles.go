package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gatehouse.io/internal/auth"
	"gatehouse.io/internal/ids"
)

const roleColumns = `id, name, description, is_active, protected, created_at, updated_at`

var errRoleInUse = fmt.Errorf("%w: role is still assigned to users", auth.ErrConflict)

func scanRole(row rowScanner) (auth.Role, error) {
	var r auth.Role
	err := row.Scan(&r.ID, &r.Name, &r.Description, &r.IsActive, &r.Protected, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateRole inserts the role and its privilege grants in one transaction.
func (s *Store) CreateRole(ctx context.Context, r auth.Role) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Role{}, err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	r.ID = ids.New()
	r.CreatedAt, r.UpdatedAt = now, now
	if _, err := tx.ExecContext(ctx, s.rebind(`
		insert into roles (`+roleColumns+`)
		values (?, ?, ?, ?, ?, ?, ?)
	`), r.ID, r.Name, r.Description, r.IsActive, r.Protected, r.CreatedAt, r.UpdatedAt); err != nil {
		return auth.Role{}, mapError(err, "role", nil)
	}
	if err := s.grant(ctx, tx, r.ID, r.PrivilegeIDs); err != nil {
		return auth.Role{}, err
	}
	if err := tx.Commit(); err != nil {
		return auth.Role{}, err
	}
	return r, nil
}

func (s *Store) grant(ctx context.Context, tx *sql.Tx, roleID string, privilegeIDs []string) error {
	for _, pid := range privilegeIDs {
		if _, err := tx.ExecContext(ctx, s.rebind(`
			insert into role_privileges (role_id, privilege_id) values (?, ?)
		`), roleID, pid); err != nil {
			return mapError(err, "role", fmt.Errorf("%w: One or more privileges do not exist", auth.ErrInvalidInput))
		}
	}
	return nil
}

func (s *Store) GetRole(ctx context.Context, id string) (auth.Role, error) {
	return s.roleBy(ctx, "id", id)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (auth.Role, error) {
	return s.roleBy(ctx, "name", name)
}

func (s *Store) roleBy(ctx context.Context, column, value string) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errNoDB
	}
	r, err := scanRole(s.db.QueryRowContext(ctx, s.rebind(
		`select `+roleColumns+` from roles where `+column+` = ?`), value))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Role{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Role{}, err
	}
	r.PrivilegeIDs, err = s.rolePrivilegeIDs(ctx, r.ID)
	if err != nil {
		return auth.Role{}, err
	}
	return r, nil
}

func (s *Store) rolePrivilegeIDs(ctx context.Context, roleID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		select privilege_id from role_privileges where role_id = ? order by privilege_id
	`), roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) ListRoles(ctx context.Context) ([]auth.Role, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+roleColumns+` from roles order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []auth.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range roles {
		if roles[i].PrivilegeIDs, err = s.rolePrivilegeIDs(ctx, roles[i].ID); err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// UpdateRole applies field changes and, when PrivilegeIDs is set, replaces
// the grant set, all in one transaction.
func (s *Store) UpdateRole(ctx context.Context, id string, upd auth.RoleUpdate) (auth.Role, error) {
	if s.db == nil {
		return auth.Role{}, errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return auth.Role{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		sets []string
		args []any
	)
	if upd.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *upd.IsActive)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now(), id)
	query := fmt.Sprintf(`update roles set %s where id = ?`, strings.Join(sets, ", "))
	res, err := tx.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return auth.Role{}, mapError(err, "role", nil)
	}
	if err := expectOne(res); err != nil {
		return auth.Role{}, err
	}

	if upd.PrivilegeIDs != nil {
		if _, err := tx.ExecContext(ctx, s.rebind(`delete from role_privileges where role_id = ?`), id); err != nil {
			return auth.Role{}, err
		}
		if err := s.grant(ctx, tx, id, *upd.PrivilegeIDs); err != nil {
			return auth.Role{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return auth.Role{}, err
	}
	return s.GetRole(ctx, id)
}

// DeleteRole fails with a conflict while users still reference the role.
func (s *Store) DeleteRole(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`delete from roles where id = ?`), id)
	if err != nil {
		return mapError(err, "role", errRoleInUse)
	}
	return expectOne(res)
}

// RolePrivileges returns the privileges granted to roleID, ordered by code.
func (s *Store) RolePrivileges(ctx context.Context, roleID string) ([]auth.Privilege, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	return s.queryPrivileges(ctx, s.db, `
		select p.id, p.code, p.name, p.description, p.module, p.module_display_name,
		       p.is_active, p.essential, p.created_at, p.updated_at
		from role_privileges rp
		join privileges p on p.id = rp.privilege_id
		where rp.role_id = ?
		order by p.code
	`, roleID)
}
