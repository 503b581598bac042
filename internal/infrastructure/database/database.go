package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	// openPingTimeout bounds the startup connectivity check.
	openPingTimeout = 5 * time.Second
)

// DB wraps a sql.DB connection to the WattGate SQLite store.
// It adds migration support, a health check, and lifecycle helpers.
type DB struct {
	*sql.DB
	path string
}

// Config maps to the database section of config.yaml.
type Config struct {
	// Path is the SQLite database file. Its directory is created on open.
	Path string

	// WALMode enables Write-Ahead Logging so reads proceed during writes.
	WALMode bool

	// BusyTimeout is how long to wait for a database lock, in seconds.
	BusyTimeout int
}

// Open connects to the SQLite database described by cfg.
//
// The connection string enables foreign keys and the configured busy
// timeout; WAL mode adds journal and synchronous pragmas. The pool is
// pinned to a single connection because SQLite allows one writer.
// Returns an error if the directory cannot be created or the initial
// ping fails.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Connection string options: github.com/mattn/go-sqlite3#connection-string
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on",
		cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Single writer; one pooled connection avoids SQLITE_BUSY churn.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The file may not exist until the first write; ignore chmod errors.
	_ = os.Chmod(cfg.Path, filePermissions)

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the store answers a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Stats exposes connection pool statistics.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// BeginTx starts a transaction. Used by migrations and any multi-row write.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	return tx, nil
}
