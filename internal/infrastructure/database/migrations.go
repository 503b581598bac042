package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// MigrationsFS is set by the migrations package at init time so the SQL
// files ship inside the binary:
//
//	//go:embed *.sql
//	var migrationsFS embed.FS
//
//	func init() {
//	    database.MigrationsFS = migrationsFS
//	    database.MigrationsDir = "."
//	}
var MigrationsFS embed.FS

// MigrationsDir is the directory inside MigrationsFS holding the SQL
// files. "." when the files sit at the embedded root.
var MigrationsDir = "migrations"

// Migration is one versioned schema change. Filenames follow
// YYYYMMDD_HHMMSS_description.up.sql with an optional .down.sql pair.
type Migration struct {
	Version string // YYYYMMDD_HHMMSS prefix
	Name    string // description part of the filename
	UpSQL   string
	DownSQL string
}

// MigrationRecord is a row of the schema_migrations bookkeeping table.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// Migrate applies every pending migration, oldest first.
//
// Each migration runs in its own transaction: a failure rolls back only
// the failing migration and stops; earlier ones stay committed, and a
// later Migrate call resumes from the failure point.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	all, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	if len(all) == 0 {
		return nil
	}

	done, err := db.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}

	for _, m := range all {
		if done[m.Version] {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration.
// Development and test tooling only.
func (db *DB) MigrateDown(ctx context.Context) error {
	applied, err := db.appliedRecords(ctx)
	if err != nil {
		return fmt.Errorf("getting applied migrations: %w", err)
	}
	if len(applied) == 0 {
		return nil
	}
	latest := applied[len(applied)-1]

	all, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	var target *Migration
	for i := range all {
		if all[i].Version == latest.Version {
			target = &all[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %s not found in filesystem", latest.Version)
	}
	if target.DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", latest.Version)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx, target.DownSQL); err != nil {
		return fmt.Errorf("executing down SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schema_migrations WHERE version = ?", target.Version); err != nil {
		return fmt.Errorf("removing migration record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rollback: %w", err)
	}
	return nil
}

// GetMigrationStatus lists applied records and still-pending migrations.
func (db *DB) GetMigrationStatus(ctx context.Context) ([]MigrationRecord, []Migration, error) {
	applied, err := db.appliedRecords(ctx)
	if err != nil {
		return nil, nil, err
	}

	all, err := loadMigrations()
	if err != nil {
		return nil, nil, err
	}

	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		done[r.Version] = true
	}

	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	records, err := db.appliedRecords(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(records))
	for _, r := range records {
		done[r.Version] = true
	}
	return done, nil
}

func (db *DB) appliedRecords(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		var at string
		if err := rows.Scan(&r.Version, &at); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, at)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return records, nil
}

func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
		return fmt.Errorf("executing SQL: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.Version, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// loadMigrations reads all migration files from the embedded FS,
// pairing .up.sql with any matching .down.sql, sorted by version.
func loadMigrations() ([]Migration, error) {
	var empty embed.FS
	if MigrationsFS == empty {
		return nil, nil
	}

	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		// No directory means no migrations to run.
		return nil, nil
	}

	ups := make(map[string]string)
	downs := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, isUp, ok := splitMigrationName(entry.Name())
		if !ok {
			continue
		}
		if isUp {
			ups[version] = entry.Name()
		} else {
			downs[version] = entry.Name()
		}
	}

	migrations := make([]Migration, 0, len(ups))
	for version, upFile := range ups {
		upSQL, err := fs.ReadFile(MigrationsFS, filepath.Join(MigrationsDir, upFile))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", upFile, err)
		}
		m := Migration{
			Version: version,
			Name:    migrationDescription(upFile),
			UpSQL:   string(upSQL),
		}
		if downFile := downs[version]; downFile != "" {
			downSQL, err := fs.ReadFile(MigrationsFS, filepath.Join(MigrationsDir, downFile))
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", downFile, err)
			}
			m.DownSQL = string(downSQL)
		}
		migrations = append(migrations, m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// splitMigrationName extracts the version and direction from a filename
// like 20260315_000000_initial_schema.up.sql.
func splitMigrationName(name string) (version string, isUp bool, ok bool) {
	base, found := strings.CutSuffix(name, ".sql")
	if !found {
		return "", false, false
	}

	switch {
	case strings.HasSuffix(base, ".up"):
		isUp = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		base = strings.TrimSuffix(base, ".down")
	default:
		return "", false, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 2 {
		return "", false, false
	}
	return parts[0] + "_" + parts[1], isUp, true
}

// migrationDescription returns the human part of the filename:
// "20260315_000000_initial_schema.up.sql" -> "initial_schema".
func migrationDescription(filename string) string {
	base := strings.TrimSuffix(filename, ".sql")
	base = strings.TrimSuffix(base, ".up")
	base = strings.TrimSuffix(base, ".down")

	if parts := strings.SplitN(base, "_", 3); len(parts) == 3 {
		return parts[2]
	}
	return base
}
