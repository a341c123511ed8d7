// Package database provides SQLite connectivity for the tracker backend.
//
// It manages the connection (WAL mode, busy timeout, foreign-key pragma),
// embedded schema migrations, and lifecycle. All queries use parameterised
// statements, and the database file is created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
