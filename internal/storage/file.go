// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides persistence adapters for the session store.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wokushop/wokuchat/internal/model"
	"github.com/wokushop/wokuchat/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists the state as a single JSON file.
type FileStore struct {
	// Path is the blob location. Default: ~/.wokuchat/sessions.json
	Path string

	// Cipher, when set, encrypts the blob at rest.
	Cipher *Cipher
}

// NewFileStore creates a file-backed persister at the default path.
func NewFileStore() (*FileStore, error) {
	dir, err := DefaultDataDir()
	if err != nil {
		return nil, err
	}
	return &FileStore{Path: filepath.Join(dir, "sessions.json")}, nil
}

// NewFileStoreWithPath creates a file-backed persister at a custom path.
func NewFileStoreWithPath(path string) *FileStore {
	return &FileStore{Path: path}
}

// DefaultDataDir returns the application data directory.
func DefaultDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, ".wokuchat"), nil
}

// Load reads the persisted state. A missing file is not an error; it
// reports found=false so the store starts empty.
func (f *FileStore) Load() (model.State, bool, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return model.State{}, false, nil
	}
	if err != nil {
		return model.State{}, false, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}

	if f.Cipher != nil && IsEncrypted(data) {
		data, err = f.Cipher.Decrypt(data)
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

// Save writes the full state atomically. Session data is private, so
// the blob is 0600 under a 0700 directory.
func (f *FileStore) Save(state model.State) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}

	if f.Cipher != nil {
		data, err = f.Cipher.Encrypt(data)
		if err != nil {
			return err
		}
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFileWithDir(f.Path, data, 0600, 0700)
}
