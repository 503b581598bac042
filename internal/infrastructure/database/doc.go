// Package database provides SQLite persistence for WattGate Core.
//
// It wraps database/sql with the mattn/go-sqlite3 driver, configured
// for a single-writer embedded deployment:
//
//   - WAL journal mode (concurrent reads during writes)
//   - busy_timeout pragma (avoids "database is locked" under contention)
//   - foreign keys enforced
//   - connection pool capped at one connection
//
// # Migrations
//
// Schema migrations are embedded into the binary by the top-level
// migrations package and applied at startup with (*DB).Migrate.
// Each migration runs in its own transaction; a failure stops the
// run at that migration and leaves earlier ones committed.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
