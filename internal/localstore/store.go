// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package localstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrClosed is returned from operations on a closed database.
var ErrClosed = errors.New("localstore: database closed")

// schema creates both key/value tables.
const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scoped_kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// =============================================================================
// DATABASE
// =============================================================================

// DB owns the local SQLite database and hands out its two stores.
type DB struct {
	sqldb *sql.DB
}

// Open opens (creating if needed) the database at path and wipes the
// scoped table so a new program run starts with a fresh scope.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := sqldb.Exec(schema); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if _, err := sqldb.Exec(`DELETE FROM scoped_kv`); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to reset scoped store: %w", err)
	}

	return &DB{sqldb: sqldb}, nil
}

// Close closes the underlying database.
func (db *DB) Close() error {
	if db.sqldb == nil {
		return nil
	}
	err := db.sqldb.Close()
	db.sqldb = nil
	return err
}

// Durable returns the store that survives restarts.
func (db *DB) Durable() *Store {
	return &Store{db: db, table: "kv"}
}

// Scoped returns the store wiped on every Open.
func (db *DB) Scoped() *Store {
	return &Store{db: db, table: "scoped_kv"}
}

// =============================================================================
// STORE
// =============================================================================

// Store is a string key/value view over one table. Writes are synchronous;
// a Set has hit the database before it returns.
type Store struct {
	db    *DB
	table string
}

// Get returns the value for key and whether it exists.
func (s *Store) Get(key string) (string, bool, error) {
	if s.db.sqldb == nil {
		return "", false, ErrClosed
	}
	var value string
	err := s.db.sqldb.QueryRow(
		fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, s.table), key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("localstore get: %w", err)
	}
	return value, true, nil
}

// Set writes key to value, replacing any previous value.
func (s *Store) Set(key, value string) error {
	if s.db.sqldb == nil {
		return ErrClosed
	}
	_, err := s.db.sqldb.Exec(
		fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, s.table),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("localstore set: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if s.db.sqldb == nil {
		return ErrClosed
	}
	_, err := s.db.sqldb.Exec(
		fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, s.table), key,
	)
	if err != nil {
		return fmt.Errorf("localstore delete: %w", err)
	}
	return nil
}
