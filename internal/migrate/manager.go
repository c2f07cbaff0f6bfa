package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/pressly/goose/v3"

	"gatehouse.io/internal/obs"
)

//go:embed sql/postgres/*.sql sql/sqlite/*.sql
var migrationsFS embed.FS

const tableName = "goose_db_version"

// goose keeps dialect and filesystem in package globals.
var gooseMu sync.Mutex

// Migration describes one embedded migration and whether it is applied.
type Migration struct {
	Version int64  `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

// Manager applies the embedded migrations for one SQL dialect.
type Manager struct {
	db      *sql.DB
	dialect string
	dir     string
}

// NewManager constructs a Manager. dialect is "postgres" or "sqlite".
func NewManager(db *sql.DB, dialect string) (*Manager, error) {
	if db == nil {
		return nil, errors.New("migrate: nil db")
	}
	switch dialect {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("migrate: unsupported dialect %q", dialect)
	}
	return &Manager{db: db, dialect: dialect, dir: path.Join("sql", dialect)}, nil
}

func (m *Manager) gooseDialect() string {
	if m.dialect == "sqlite" {
		return "sqlite3"
	}
	return "postgres"
}

func (m *Manager) with(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationsFS)
	goose.SetTableName(tableName)
	goose.SetLogger(obs.Logger())
	if err := goose.SetDialect(m.gooseDialect()); err != nil {
		return err
	}
	return fn()
}

// Up applies all pending migrations.
func (m *Manager) Up(ctx context.Context) error {
	return m.with(func() error {
		if err := goose.UpContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

// Down rolls back the most recent applied migration.
func (m *Manager) Down(ctx context.Context) error {
	return m.with(func() error {
		if err := goose.DownContext(ctx, m.db, m.dir); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	})
}

// Version returns the current schema version.
func (m *Manager) Version(ctx context.Context) (int64, error) {
	var v int64
	err := m.with(func() error {
		var err error
		v, err = goose.GetDBVersionContext(ctx, m.db)
		return err
	})
	return v, err
}

// Status lists embedded migrations in order with their applied state.
func (m *Manager) Status(ctx context.Context) ([]Migration, error) {
	var out []Migration
	err := m.with(func() error {
		current, err := goose.GetDBVersionContext(ctx, m.db)
		if err != nil {
			return err
		}
		all, err := goose.CollectMigrations(m.dir, 0, goose.MaxVersion)
		if err != nil {
			return err
		}
		for _, mig := range all {
			out = append(out, Migration{
				Version: mig.Version,
				Name:    path.Base(mig.Source),
				Applied: mig.Version <= current,
			})
		}
		return nil
	})
	return out, err
}
