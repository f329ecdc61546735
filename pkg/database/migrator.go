package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations in filename order.
// Applied versions are tracked in schema_migrations, so reruns are
// no-ops and each pending migration applies atomically. Every
// NNNN_name.sql has a NNNN_name.down.sql counterpart that Down uses to
// roll back one version at a time.
type Migrator struct {
	db *DB
}

const downSuffix = ".down.sql"

func NewMigrator(db *DB) *Migrator {
	return &Migrator{db: db}
}

func (m *Migrator) Run(ctx context.Context) error {
	if err := m.ensureVersionTable(ctx); err != nil {
		return err
	}

	files, err := m.getMigrationFiles()
	if err != nil {
		return fmt.Errorf("failed to get migration files: %w", err)
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, file := range files {
		if applied[file] {
			logger.Debugf("Migration already applied: %s", file)
			continue
		}
		if err := m.executeMigration(ctx, file); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}
	}

	return nil
}

// Down rolls back the most recently applied migration and returns its
// name. An empty name means nothing was applied.
func (m *Migrator) Down(ctx context.Context) (string, error) {
	exists, err := m.db.TableExists(ctx, "schema_migrations")
	if err != nil {
		return "", err
	}
	if !exists {
		return "", nil
	}

	var version string
	err = m.db.QueryRowContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find latest migration: %w", err)
	}

	downFile := strings.TrimSuffix(version, ".sql") + downSuffix
	content, err := fs.ReadFile(migrationsFS, "migrations/"+downFile)
	if err != nil {
		return "", fmt.Errorf("no down migration for %s: %w", version, err)
	}

	logger.Infof("Rolling back migration: %s", version)

	err = m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = $1`, version)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to roll back %s: %w", version, err)
	}
	return version, nil
}

// Pending lists migrations that have not been applied yet.
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	exists, err := m.db.TableExists(ctx, "schema_migrations")
	if err != nil {
		return nil, err
	}

	files, err := m.getMigrationFiles()
	if err != nil {
		return nil, err
	}
	if !exists {
		return files, nil
	}

	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var pending []string
	for _, file := range files {
		if !applied[file] {
			pending = append(pending, file)
		}
	}
	return pending, nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (m *Migrator) getMigrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), downSuffix) {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	return files, nil
}

func (m *Migrator) executeMigration(ctx context.Context, filename string) error {
	content, err := fs.ReadFile(migrationsFS, "migrations/"+filename)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	logger.Infof("Executing migration: %s", filename)

	return m.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute SQL: %w", err)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, filename)
		return err
	})
}
