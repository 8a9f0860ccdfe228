// Package db holds the session registry of scan runs and samples. The
// registry lives in an in-memory SQLite database and is discarded when the
// process exits.
package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("db: not found")

const memoryDSN = "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite"

// DB wraps the registry connection
type DB struct {
	*sql.DB
}

// Open creates a fresh in-memory registry and runs migrations
func Open() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", memoryDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	// Every connection to :memory: is its own database, so keep exactly one
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	db := &DB{DB: sqlDB}
	if err := db.Migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}
