// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides persistence adapters for the session store.
//
// Every adapter implements the store's Persister port: the whole
// application state is read and written as one serialized blob under a
// single well-known key. Two backends are available:
//
//   - FileStore: a JSON file written atomically (temp + fsync + rename)
//   - SQLiteStore: a single-row key/value table in a SQLite database
//
// Both wrap the state in a versioned envelope. Legacy blobs without a
// version field are still readable; blobs with an unknown future
// version load as empty state rather than failing.
//
// An optional Cipher encrypts the blob at rest with AES-256-GCM and a
// PBKDF2-derived key.
//
// Writers sharing one key race with last-write-wins semantics; nothing
// here coordinates across processes.
package storage
