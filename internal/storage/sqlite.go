// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides persistence adapters for the session store.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/wokushop/wokuchat/internal/model"
)

// =============================================================================
// SQLITE STORE
// =============================================================================

const kvSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLiteStore persists the state as one row of a key/value table. It
// shares the FileStore's blob layout, so the two drivers stay
// interchangeable.
type SQLiteStore struct {
	db *sql.DB

	// Cipher, when set, encrypts the blob at rest.
	Cipher *Cipher
}

// NewSQLiteStore opens (or creates) the database at path and prepares
// the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time; a second connection only
	// buys lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(kvSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DefaultSQLitePath returns the default database location.
func DefaultSQLitePath() (string, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "wokuchat.db"), nil
}

// Load reads the persisted state row. An absent row reports
// found=false.
func (s *SQLiteStore) Load() (model.State, bool, error) {
	var data []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", StorageKey).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.State{}, false, nil
	}
	if err != nil {
		return model.State{}, false, fmt.Errorf("failed to read state row: %w", err)
	}

	if s.Cipher != nil && IsEncrypted(data) {
		data, err = s.Cipher.Decrypt(data)
		if err != nil {
			return model.State{}, false, err
		}
	} else if IsEncrypted(data) {
		return model.State{}, false, ErrPassphraseRequired
	}

	state, err := decodeState(data)
	if err != nil {
		return model.State{}, false, err
	}
	return state, true, nil
}

// Save upserts the full state under the fixed key.
func (s *SQLiteStore) Save(state model.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	if s.Cipher != nil {
		data, err = s.Cipher.Encrypt(data)
		if err != nil {
			return err
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		StorageKey, data, model.NowMillis())
	if err != nil {
		return fmt.Errorf("failed to write state row: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
