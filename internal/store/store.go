// Package store is the broker's single-writer, embedded-relational
// persistence layer: sessions, thread↔project mappings, the custom
// command catalog, notification preferences and the emergency-mode
// flag, all in one sqlite file with write-ahead logging. The pool holds
// a single connection, so reads and writes run one at a time.
//
// Grounded on other_examples/joestump-claude-ops's use of
// modernc.org/sqlite (pure Go, no cgo) and pressly/goose for schema
// migrations.
package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/relaybroker/broker/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var log = logging.New("store")

// DB wraps the broker's sqlite connection. Writers are serialized
// through writeMu (single-writer safety); because the pool is limited
// to one connection, a read waits while any other statement runs.
type DB struct {
	sql     *sql.DB
	writeMu sync.Mutex
}

// Open opens (creating if necessary) the sqlite database at path,
// enables WAL journaling and foreign keys, and runs pending migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1) // modernc.org/sqlite: one connection avoids SQLITE_BUSY under WAL

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Printf("opened database at %s", path)
	return &DB{sql: sqlDB}, nil
}

// Close releases the underlying connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping checks the connection is alive, for the health check endpoint.
func (d *DB) Ping() error {
	return d.sql.Ping()
}

// withWrite serializes writers per the single-writer concurrency model.
func (d *DB) withWrite(fn func() error) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return fn()
}
