// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultTitle is the placeholder title of a session before its first
// user message arrives.
const DefaultTitle = "New chat"

// titleMaxRunes bounds derived session titles.
const titleMaxRunes = 40

// =============================================================================
// CHAT SESSION TYPE
// =============================================================================

// ChatSession holds one conversation thread. Messages are append-only
// and chronological; sessions are deleted whole, never partially.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"` // epoch milliseconds
	UpdatedAt int64     `json:"updatedAt"` // epoch milliseconds
}

// NewSession creates an empty session with a generated ID and the
// placeholder title.
func NewSession() ChatSession {
	now := NowMillis()
	return ChatSession{
		ID:        NewID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasUserMessage reports whether any message in the session was
// authored by the user. Title derivation fires on the first one.
func (s ChatSession) HasUserMessage() bool {
	for _, m := range s.Messages {
		if m.Role == RoleUser {
			return true
		}
	}
	return false
}

// LastMessage returns the most recent message and true, or a zero
// Message and false when the session is empty.
func (s ChatSession) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// MessageCount returns the number of messages in the session.
func (s ChatSession) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty returns true if the session has no messages.
func (s ChatSession) IsEmpty() bool {
	return len(s.Messages) == 0
}

// Clone returns a deep copy of the session. The reducer copies before
// it mutates, so callers can hold snapshots safely.
func (s ChatSession) Clone() ChatSession {
	clone := s
	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	return clone
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle produces a session title from message content: markdown
// heading, emphasis and code markers are stripped, whitespace trimmed,
// and the result capped at 40 runes with an ellipsis. Content is
// NFC-normalized first so visually identical input yields one title.
func DeriveTitle(content string) string {
	cleaned := strings.NewReplacer("#", "", "*", "", "`", "").Replace(content)
	cleaned = strings.TrimSpace(norm.NFC.String(cleaned))

	runes := []rune(cleaned)
	if len(runes) <= titleMaxRunes {
		return cleaned
	}
	return string(runes[:titleMaxRunes]) + "..."
}
