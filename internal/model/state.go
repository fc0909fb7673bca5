// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

// State is the whole application state: every session, most recently
// created first, plus the id of the active one ("" when none).
//
// Invariant: ActiveSessionID is "" or equals the ID of some element of
// Sessions. The store's reducer maintains this across transitions.
type State struct {
	Sessions        []ChatSession `json:"sessions"`
	ActiveSessionID string        `json:"activeSessionId"`
}

// NewState returns the zero state: no sessions, nothing active.
func NewState() State {
	return State{Sessions: []ChatSession{}, ActiveSessionID: ""}
}

// SessionByID returns a copy of the session with the given id and true,
// or a zero session and false.
func (s State) SessionByID(id string) (ChatSession, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess.Clone(), true
		}
	}
	return ChatSession{}, false
}

// ActiveSession returns a copy of the active session and true, or a
// zero session and false. A stale ActiveSessionID that matches nothing
// behaves the same as no active session.
func (s State) ActiveSession() (ChatSession, bool) {
	if s.ActiveSessionID == "" {
		return ChatSession{}, false
	}
	return s.SessionByID(s.ActiveSessionID)
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	clone := State{
		Sessions:        make([]ChatSession, len(s.Sessions)),
		ActiveSessionID: s.ActiveSessionID,
	}
	for i, sess := range s.Sessions {
		clone.Sessions[i] = sess.Clone()
	}
	return clone
}
