// Package database manages the SQLite connection for the operator
// directory and its schema migrations.
//
// The database is opened with WAL mode, a busy timeout, and foreign
// keys enabled. Migrations are embedded into the binary via the
// top-level migrations package and applied per-migration transactionally.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: "data/gymhub.db", WALMode: true, BusyTimeout: 5})
//	if err != nil { ... }
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil { ... }
package database
