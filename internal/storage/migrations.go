// Package storage persists locker state, activity logs and nonces.
//
// The SQL schema is versioned by embedded migration files under
// migrations/<driver>/, named NNNN_name.up.sql or NNNN_name.down.sql. Only up
// migrations are applied automatically, in version order, each in its own
// transaction. Adding a migration requires rebuilding the binary.
package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"slices"
	"strconv"
	"time"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

var reMigrationFilename = regexp.MustCompile(`^(?P<Version>\d{4})_(?P<Name>[^.]+)\.(?P<Direction>up|down)\.sql$`)

// SchemaMigration is a single migration file.
type SchemaMigration struct {
	Version int
	Name    string
	Up      bool
	SQL     string
}

// MigrationRunner applies the embedded migrations of one driver.
type MigrationRunner struct {
	driver string
	logger *slog.Logger
}

func NewMigrationRunner(driver string) *MigrationRunner {
	return &MigrationRunner{
		driver: driver,
		logger: slog.With("component", "migrations", "driver", driver),
	}
}

// Run brings the schema from its current version up to the latest migration.
func (mr *MigrationRunner) Run(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER NOT NULL,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	pending, err := mr.pending(int(current.Int64))
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		mr.logger.Debug("Schema is up to date", "version", current.Int64)
		return nil
	}

	for _, m := range pending {
		if err := apply(db, m); err != nil {
			return fmt.Errorf("migration %04d_%s failed: %w", m.Version, m.Name, err)
		}
		mr.logger.Info("Applied migration", "version", m.Version, "name", m.Name)
	}
	return nil
}

// GetLatestMigrationVersion returns the highest up migration version.
func (mr *MigrationRunner) GetLatestMigrationVersion() (int, error) {
	migrations, err := mr.load()
	if err != nil {
		return -1, err
	}
	latest := 0
	for _, m := range migrations {
		if m.Up {
			latest = max(latest, m.Version)
		}
	}
	return latest, nil
}

// pending returns the up migrations newer than current, oldest first.
func (mr *MigrationRunner) pending(current int) ([]SchemaMigration, error) {
	migrations, err := mr.load()
	if err != nil {
		return nil, err
	}
	var out []SchemaMigration
	for _, m := range migrations {
		if m.Up && m.Version > current {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b SchemaMigration) int { return a.Version - b.Version })
	return out, nil
}

func (mr *MigrationRunner) load() ([]SchemaMigration, error) {
	dir := path.Join("migrations", mr.driver)
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("unsupported driver %q: %w", mr.driver, err)
	}

	var out []SchemaMigration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m, err := parseMigrationFile(path.Join(dir, entry.Name()))
		if err != nil {
			mr.logger.Warn("Skipping migration file", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func parseMigrationFile(file string) (SchemaMigration, error) {
	parts := reMigrationFilename.FindStringSubmatch(path.Base(file))
	if parts == nil {
		return SchemaMigration{}, fmt.Errorf("invalid migration filename: %s", path.Base(file))
	}

	body, err := migrationsFS.ReadFile(file)
	if err != nil {
		return SchemaMigration{}, fmt.Errorf("failed to read migration file: %w", err)
	}

	version, _ := strconv.Atoi(parts[reMigrationFilename.SubexpIndex("Version")])
	return SchemaMigration{
		Version: version,
		Name:    parts[reMigrationFilename.SubexpIndex("Name")],
		Up:      parts[reMigrationFilename.SubexpIndex("Direction")] == "up",
		SQL:     string(body),
	}, nil
}

func apply(db *sql.DB, m SchemaMigration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`, m.Version, time.Now().Unix()); err != nil {
		return err
	}
	return tx.Commit()
}
