// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the session state and its transitions.
package store

import "github.com/wokushop/wokuchat/internal/model"

// Action is one requested state transition. The reducer returns the
// state unchanged for any action type it does not recognize.
type Action interface {
	isAction()
}

// LoadState replaces the entire state with its payload. Dispatched
// once, at hydration.
type LoadState struct {
	State model.State
}

// CreateSession prepends a fresh empty session and makes it active.
type CreateSession struct{}

// DeleteSession removes the session with the given id. If it was
// active, the first remaining session becomes active, or none.
type DeleteSession struct {
	ID string
}

// SetActiveSession sets the active session id unconditionally. No
// existence check; resolving stale ids is the reader's job.
type SetActiveSession struct {
	ID string
}

// AddMessage appends a message to the session with the given id,
// refreshing its UpdatedAt. The session's first user message also
// fixes its title. Unknown session ids are silently ignored so a
// response landing after its session was deleted cannot resurrect it.
type AddMessage struct {
	SessionID string
	Message   model.Message
}

// UpdateSessionTitle overwrites a session's title.
type UpdateSessionTitle struct {
	SessionID string
	Title     string
}

func (LoadState) isAction()          {}
func (CreateSession) isAction()      {}
func (DeleteSession) isAction()      {}
func (SetActiveSession) isAction()   {}
func (AddMessage) isAction()         {}
func (UpdateSessionTitle) isAction() {}
