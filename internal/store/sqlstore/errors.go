package sqlstore

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"gatehouse.io/internal/auth"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func maybeSQLiteError(err error) (*sqlite.Error, bool) {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr, true
	}
	return nil, false
}

// mapError turns constraint violations into domain errors. Unique violations
// become *auth.ConflictError naming the column; foreign key violations become
// fkErr when it is non-nil.
func mapError(err error, entity string, fkErr error) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return &auth.ConflictError{Entity: entity, Field: fieldFromConstraint(pgErr.TableName, pgErr.ConstraintName)}
		case pgErrForeignKeyViolation:
			if fkErr != nil {
				return fkErr
			}
		}
		return err
	}
	if liteErr, ok := maybeSQLiteError(err); ok {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &auth.ConflictError{Entity: entity, Field: fieldFromSQLiteMessage(liteErr.Error())}
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			if fkErr != nil {
				return fkErr
			}
		}
	}
	return err
}

// fieldFromConstraint maps "users_username_key" to "username".
func fieldFromConstraint(table, constraint string) string {
	field := strings.TrimSuffix(constraint, "_key")
	if table != "" {
		field = strings.TrimPrefix(field, table+"_")
	} else if i := strings.Index(field, "_"); i >= 0 {
		field = field[i+1:]
	}
	return field
}

// fieldFromSQLiteMessage maps "constraint failed: UNIQUE constraint failed: users.username (2067)"
// to "username". modernc prefixes the sqlite3 text with its own "constraint failed: ",
// so the column list follows the last occurrence. Composite keys report their first column.
func fieldFromSQLiteMessage(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	rest, _, _ = strings.Cut(rest, ",")
	rest, _, _ = strings.Cut(rest, " ")
	if j := strings.LastIndex(rest, "."); j >= 0 {
		rest = rest[j+1:]
	}
	return rest
}
