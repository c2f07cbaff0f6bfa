package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gatehouse.io/internal/auth"
	"gatehouse.io/internal/ids"
)

const userColumns = `id, username, email, password_hash, role_id, is_active, full_name,
	last_login, reset_password_token, reset_password_expires, created_at, updated_at`

var errUnknownRole = fmt.Errorf("%w: Role does not exist", auth.ErrInvalidInput)

func scanUser(row rowScanner) (auth.User, error) {
	var (
		u          auth.User
		lastLogin  sql.NullTime
		resetToken sql.NullString
		resetExp   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.RoleID, &u.IsActive, &u.FullName,
		&lastLogin, &resetToken, &resetExp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return auth.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if resetToken.Valid {
		tok := resetToken.String
		u.ResetPasswordToken = &tok
	}
	if resetExp.Valid {
		t := resetExp.Time
		u.ResetPasswordExpires = &t
	}
	return u, nil
}

// CreateUser inserts directly; the unique indexes on username and email
// decide concurrent duplicates.
func (s *Store) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	now := s.now()
	u.ID = ids.New()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, s.rebind(`
		insert into users (`+userColumns+`)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), u.ID, u.Username, u.Email, u.PasswordHash, u.RoleID, u.IsActive, u.FullName,
		nullTime(u.LastLogin), nullString(u.ResetPasswordToken), nullTime(u.ResetPasswordExpires),
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return auth.User{}, mapError(err, "user", errUnknownRole)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	return s.userBy(ctx, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	return s.userBy(ctx, "username", username)
}

func (s *Store) userBy(ctx context.Context, column, value string) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	u, err := scanUser(s.db.QueryRowContext(ctx, s.rebind(
		`select `+userColumns+` from users where `+column+` = ?`), value))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, auth.ErrNotFound
	}
	if err != nil {
		return auth.User{}, err
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]auth.User, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+userColumns+` from users order by username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser applies the set fields. upd.Password must already be a digest.
func (s *Store) UpdateUser(ctx context.Context, id string, upd auth.UserUpdate) (auth.User, error) {
	if s.db == nil {
		return auth.User{}, errNoDB
	}
	var (
		sets []string
		args []any
	)
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"username", upd.Username},
		{"email", upd.Email},
		{"password_hash", upd.Password},
		{"role_id", upd.RoleID},
		{"full_name", upd.FullName},
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
		query := fmt.Sprintf(`update users set %s where id = ?`, strings.Join(sets, ", "))
		res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
		if err != nil {
			return auth.User{}, mapError(err, "user", errUnknownRole)
		}
		if err := expectOne(res); err != nil {
			return auth.User{}, err
		}
	}
	return s.GetUser(ctx, id)
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`update users set last_login = ? where id = ?`), at.UTC(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`delete from users where id = ?`), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
