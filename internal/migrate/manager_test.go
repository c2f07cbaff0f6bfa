package migrate

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUpDownStatusSQLite(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	m, err := NewManager(db, "sqlite")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Up(ctx); err != nil {
		t.Fatalf("Up: %v", err)
	}
	if err := m.Up(ctx); err != nil {
		t.Fatalf("second Up should be a no-op: %v", err)
	}
	v, err := m.Version(ctx)
	if err != nil || v != 1 {
		t.Fatalf("Version=%d err=%v, want 1", v, err)
	}
	for _, table := range []string{"privileges", "roles", "role_privileges", "users"} {
		var n int
		if err := db.QueryRowContext(ctx, `select count(1) from sqlite_master where type='table' and name=?`, table).Scan(&n); err != nil || n != 1 {
			t.Fatalf("table %s missing (n=%d err=%v)", table, n, err)
		}
	}
	status, err := m.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(status) != 1 || !status[0].Applied || status[0].Name != "00001_auth.sql" {
		t.Fatalf("unexpected status: %+v", status)
	}

	if err := m.Down(ctx); err != nil {
		t.Fatalf("Down: %v", err)
	}
	var n int
	_ = db.QueryRowContext(ctx, `select count(1) from sqlite_master where type='table' and name='users'`).Scan(&n)
	if n != 0 {
		t.Fatal("users table should be dropped after Down")
	}
}

func TestNewManagerRejectsUnknownDialect(t *testing.T) {
	if _, err := NewManager(openSQLite(t), "mysql"); err == nil {
		t.Fatal("expected unsupported dialect error")
	}
	if _, err := NewManager(nil, "sqlite"); err == nil {
		t.Fatal("expected nil db error")
	}
}
