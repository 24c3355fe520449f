// Package database opens the bridge's SQLite store and applies its
// embedded schema migrations.
//
// The handle embeds sql.DB, so the history and audit stores query it
// directly. WAL mode keeps the status API readable while poll cycles
// write, and the busy timeout retries a locked database instead of
// failing.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only and apply forward: new columns must be
// nullable or carry defaults, and columns are never dropped or renamed.
// A .down.sql next to each .up.sql is kept as an operator rollback
// script but is not executed by the bridge.
package database
