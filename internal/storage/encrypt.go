// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides persistence adapters for the session store.
package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// encryptedPrefix marks a blob as encrypted
// (format: ENC:base64(salt|nonce|ciphertext|tag)).
const encryptedPrefix = "ENC:"

// keySize is the AES-256 key size (32 bytes).
const keySize = 32

// saltSize is the PBKDF2 salt size (32 bytes).
const saltSize = 32

// pbkdf2Iterations follows the OWASP 2023 recommendation of 600,000+
// iterations for PBKDF2-SHA-256.
const pbkdf2Iterations = 600000

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrPassphraseRequired indicates the blob is encrypted and no
	// passphrase was provided.
	ErrPassphraseRequired = errors.New("persisted state is encrypted: passphrase required")
	// ErrInvalidCiphertext indicates the ciphertext format is invalid.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates a wrong passphrase or tampered data.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
)

// =============================================================================
// CIPHER
// =============================================================================

// Cipher encrypts persisted blobs with AES-256-GCM. The key is derived
// from a passphrase via PBKDF2-SHA-256 once per salt; the salt travels
// inside each blob so any instance with the same passphrase can read
// blobs written by another.
type Cipher struct {
	passphrase []byte

	// Encrypt-side state, derived once.
	salt []byte
	aead cipher.AEAD
}

// NewCipher builds a cipher from a passphrase.
func NewCipher(passphrase string) (*Cipher, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := deriveAEAD([]byte(passphrase), salt)
	if err != nil {
		return nil, err
	}

	return &Cipher{passphrase: []byte(passphrase), salt: salt, aead: aead}, nil
}

// IsEncrypted reports whether a blob carries the encryption marker.
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(encryptedPrefix))
}

// Encrypt seals a plaintext blob. A fresh nonce is drawn per call; the
// write-side salt is reused so key derivation happens once per process.
func (c *Cipher) Encrypt(plain []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plain, nil)

	payload := make([]byte, 0, len(c.salt)+len(nonce)+len(sealed))
	payload = append(payload, c.salt...)
	payload = append(payload, nonce...)
	payload = append(payload, sealed...)

	return []byte(encryptedPrefix + base64.StdEncoding.EncodeToString(payload)), nil
}

// Decrypt opens a sealed blob, deriving the key from the salt embedded
// in the payload.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if !IsEncrypted(data) {
		return nil, ErrInvalidCiphertext
	}

	payload, err := base64.StdEncoding.DecodeString(string(data[len(encryptedPrefix):]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}

	aead := c.aead
	nonceSize := aead.NonceSize()
	if len(payload) < saltSize+nonceSize {
		return nil, ErrInvalidCiphertext
	}
	salt := payload[:saltSize]

	// Blobs from another process carry a different salt; re-derive.
	if !bytes.Equal(salt, c.salt) {
		aead, err = deriveAEAD(c.passphrase, salt)
		if err != nil {
			return nil, err
		}
	}

	nonce := payload[saltSize : saltSize+nonceSize]
	sealed := payload[saltSize+nonceSize:]

	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}

// deriveAEAD builds an AES-256-GCM AEAD from a passphrase and salt.
// SECURITY: Zero key material after the cipher captures it.
func deriveAEAD(passphrase, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(passphrase, salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// zeroBytes clears sensitive byte slices to limit memory disclosure.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
