// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

// NewID returns a unique identifier for messages and sessions.
//
// Prefers a cryptographically random UUID v4. If the system's random
// source is unavailable it falls back to a v4-shaped string built from
// a non-cryptographic source. IDs are identifiers only, never secrets,
// so the fallback does not weaken anything.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID()
	}
	return id.String()
}

// fallbackID builds a UUID-v4-shaped string by hand: version nibble
// fixed to 4, variant nibble in {8, 9, a, b}.
func fallbackID() string {
	b := make([]byte, 16)
	for i := range b {
		b[i] = byte(rand.Intn(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
