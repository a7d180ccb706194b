package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration represents a single database migration loaded from a SQL file.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationStatus represents the status of a migration (applied or pending).
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator reads numbered SQL files from fsys and applies them in order.
type Migrator struct {
	db   *DB
	fsys fs.FS
}

// NewMigrator creates a Migrator over the embedded history migrations.
func NewMigrator(db *DB) *Migrator {
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return &Migrator{db: db, fsys: sub}
}

// EnsureMigrationsTable creates the _migrations tracking table if it does
// not already exist.
func (m *Migrator) EnsureMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
    version INTEGER PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    applied_at TEXT NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create _migrations table: %w", err)
	}
	return nil
}

// LoadMigrations returns the NNN_name.sql files ordered by version. Files
// without a numeric prefix are ignored.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	names, err := fs.Glob(m.fsys, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var migrations []Migration
	for _, name := range names {
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		body, err := fs.ReadFile(m.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(body)})
	}

	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

// plan pairs every known migration with the time it was applied, if it was.
func (m *Migrator) plan(ctx context.Context) ([]MigrationStatus, []Migration, error) {
	if err := m.EnsureMigrationsTable(ctx); err != nil {
		return nil, nil, err
	}
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, nil, err
	}

	rows, err := m.db.QueryContext(ctx, `SELECT version, applied_at FROM _migrations`)
	if err != nil {
		return nil, nil, fmt.Errorf("query applied versions: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at string
		if err := rows.Scan(&version, &at); err != nil {
			return nil, nil, fmt.Errorf("scan applied version: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, nil, fmt.Errorf("parse applied_at of %d: %w", version, err)
		}
		applied[version] = t
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate applied versions: %w", err)
	}

	statuses := make([]MigrationStatus, len(migrations))
	for i, mig := range migrations {
		statuses[i] = MigrationStatus{Version: mig.Version, Name: mig.Name}
		if at, ok := applied[mig.Version]; ok {
			statuses[i].Applied = true
			statuses[i].AppliedAt = &at
		}
	}
	return statuses, migrations, nil
}

// Up applies pending migrations in version order, one transaction each, and
// returns how many it applied.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	statuses, migrations, err := m.plan(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i, mig := range migrations {
		if statuses[i].Applied {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return count, fmt.Errorf("apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		count++
	}
	return count, nil
}

// apply runs the ';' separated statements of mig and records it.
func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range strings.Split(mig.SQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute SQL: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		m.db.Rebind("INSERT INTO _migrations (version, name, applied_at) VALUES (?, ?, ?)"),
		mig.Version, mig.Name, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

// Status lists every known migration, applied or pending.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	statuses, _, err := m.plan(ctx)
	return statuses, err
}
