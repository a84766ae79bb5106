// Package database provides SQLite connectivity for Gray Logic Notify.
//
// This package manages:
//   - The database connection (WAL mode, busy timeout, immediate transactions)
//   - Embedded schema migrations
//   - Connection lifecycle and health checks
//
// The queue database is the only shared mutable state in the service. Claim,
// enqueue and purge are each a single transaction against it; there is no
// in-process cache of message state.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Migrations are additive-only. Files are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional matching .down.sql.
package database
