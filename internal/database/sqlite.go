// Package database opens the embedded SQLite database shared by the
// preference store and the local extension-table gateway.
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DefaultDSN is used when no DSN is configured.
const DefaultDSN = "file:ioncon.db?_pragma=busy_timeout(5000)"

// MemoryDSN opens a private in-memory database.
const MemoryDSN = "file::memory:"

// Open opens dsn with the pure-Go SQLite driver. SQLite serialises writers,
// so the pool is limited to a single connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

// Migrate runs each statement in order.
func Migrate(ctx context.Context, db *sql.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration: %w", err)
		}
	}
	return nil
}
