// Package database provides SQLite connectivity for Gray Logic Access.
//
// This package manages:
//   - The process-lifetime connection handle (WAL mode, busy timeout, foreign keys)
//   - Embedded schema migrations (forward and backward SQL files)
//   - Transaction scoping for mutations (WithTx)
//   - Classification of driver errors into constraint violations and
//     operational failures (AsConstraintViolation, IsOperational)
//
// Uniqueness invariants of the access-control model (one rule per room and
// role, one presence per user) live in unique indexes. Repositories attempt
// the write and classify the failure instead of checking first.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
