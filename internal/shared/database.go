package shared

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// storePragmas are applied by the driver on every new connection. The busy timeout lets a CLI
// command wait out a concurrent "discover --save" transaction instead of failing with SQLITE_BUSY.
const storePragmas = "_busy_timeout=5000&_foreign_keys=on"

// NewDatabase opens the watch-list store at path and verifies the connection.
// The path can be ":memory:" for an in-memory database.
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", storeDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// storeDSN appends [storePragmas] to path, keeping any parameters the caller already set.
func storeDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + storePragmas
}

// ConfigureDatabase sets connection pool settings for the database.
//
// An in-memory store must use a single connection; each new connection would see an empty database.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
}
