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

const privilegeColumns = `id, code, name, description, module, module_display_name, is_active, essential, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrivilege(row rowScanner) (auth.Privilege, error) {
	var p auth.Privilege
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Module, &p.ModuleDisplayName,
		&p.IsActive, &p.Essential, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) CreatePrivilege(ctx context.Context, p auth.Privilege) (auth.Privilege, error) {
	if s.db == nil {
		return auth.Privilege{}, errNoDB
	}
	now := s.now()
	p.ID = ids.New()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, s.rebind(`
		insert into privileges (`+privilegeColumns+`)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), p.ID, p.Code, p.Name, p.Description, p.Module, p.ModuleDisplayName, p.IsActive, p.Essential, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return auth.Privilege{}, mapError(err, "privilege", nil)
	}
	return p, nil
}

func (s *Store) GetPrivilege(ctx context.Context, id string) (auth.Privilege, error) {
	return s.privilegeBy(ctx, "id", id)
}

func (s *Store) GetPrivilegeByCode(ctx context.Context, code string) (auth.Privilege, error) {
	return s.privilegeBy(ctx, "code", code)
}

func (s *Store) privilegeBy(ctx context.Context, column, value string) (auth.Privilege, error) {
	if s.db == nil {
		return auth.Privilege{}, errNoDB
	}
	p, err := scanPrivilege(s.db.QueryRowContext(ctx, s.rebind(
		`select `+privilegeColumns+` from privileges where `+column+` = ?`), value))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Privilege{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.Privilege{}, err
	}
	return p, nil
}

func (s *Store) ListPrivileges(ctx context.Context) ([]auth.Privilege, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	return s.queryPrivileges(ctx, s.db, `select `+privilegeColumns+` from privileges order by module, code`)
}

func (s *Store) FindPrivileges(ctx context.Context, idList []string) ([]auth.Privilege, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	if len(idList) == 0 {
		return nil, nil
	}
	args := make([]any, len(idList))
	for i, id := range idList {
		args[i] = id
	}
	return s.queryPrivileges(ctx, s.db,
		`select `+privilegeColumns+` from privileges where id in (`+placeholders(len(idList))+`) order by code`, args...)
}

func (s *Store) queryPrivileges(ctx context.Context, q querier, query string, args ...any) ([]auth.Privilege, error) {
	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Privilege
	for rows.Next() {
		p, err := scanPrivilege(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdatePrivilege(ctx context.Context, id string, upd auth.PrivilegeUpdate) (auth.Privilege, error) {
	if s.db == nil {
		return auth.Privilege{}, errNoDB
	}
	var (
		sets []string
		args []any
	)
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"code", upd.Code},
		{"name", upd.Name},
		{"description", upd.Description},
		{"module", upd.Module},
		{"module_display_name", upd.ModuleDisplayName},
	} {
		if f.value != nil {
			sets = append(sets, f.column+" = ?")
			args = append(args, *f.value)
		}
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *upd.IsActive)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, s.now(), id)
		query := fmt.Sprintf(`update privileges set %s where id = ?`, strings.Join(sets, ", "))
		res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
		if err != nil {
			return auth.Privilege{}, mapError(err, "privilege", nil)
		}
		if err := expectOne(res); err != nil {
			return auth.Privilege{}, err
		}
	}
	return s.GetPrivilege(ctx, id)
}

// DeletePrivilege removes the privilege; role grants cascade.
func (s *Store) DeletePrivilege(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`delete from privileges where id = ?`), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
