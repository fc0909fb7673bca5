// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the session state and its transitions.
package store

import "github.com/wokushop/wokuchat/internal/model"

// Reduce maps (state, action) to a new state. Inputs are never
// mutated; every transition builds fresh slices for what it changes.
//
// Invariant maintained across all transitions: ActiveSessionID is ""
// or the id of some session in Sessions.
func Reduce(state model.State, action Action) model.State {
	switch a := action.(type) {
	case LoadState:
		return a.State

	case CreateSession:
		sess := model.NewSession()
		next := model.State{
			Sessions:        make([]model.ChatSession, 0, len(state.Sessions)+1),
			ActiveSessionID: sess.ID,
		}
		next.Sessions = append(next.Sessions, sess)
		next.Sessions = append(next.Sessions, state.Sessions...)
		return next

	case DeleteSession:
		remaining := make([]model.ChatSession, 0, len(state.Sessions))
		for _, sess := range state.Sessions {
			if sess.ID != a.ID {
				remaining = append(remaining, sess)
			}
		}
		active := state.ActiveSessionID
		if active == a.ID {
			if len(remaining) > 0 {
				active = remaining[0].ID
			} else {
				active = ""
			}
		}
		return model.State{Sessions: remaining, ActiveSessionID: active}

	case SetActiveSession:
		return model.State{Sessions: state.Sessions, ActiveSessionID: a.ID}

	case AddMessage:
		sessions := make([]model.ChatSession, len(state.Sessions))
		for i, sess := range state.Sessions {
			if sess.ID != a.SessionID {
				sessions[i] = sess
				continue
			}
			updated := sess.Clone()
			firstUserMessage := a.Message.Role == model.RoleUser && !updated.HasUserMessage()
			updated.Messages = append(updated.Messages, a.Message)
			updated.UpdatedAt = model.NowMillis()
			if firstUserMessage {
				updated.Title = model.DeriveTitle(a.Message.Content)
			}
			sessions[i] = updated
		}
		return model.State{Sessions: sessions, ActiveSessionID: state.ActiveSessionID}

	case UpdateSessionTitle:
		sessions := make([]model.ChatSession, len(state.Sessions))
		for i, sess := range state.Sessions {
			if sess.ID != a.SessionID {
				sessions[i] = sess
				continue
			}
			updated := sess.Clone()
			updated.Title = a.Title
			updated.UpdatedAt = model.NowMillis()
			sessions[i] = updated
		}
		return model.State{Sessions: sessions, ActiveSessionID: state.ActiveSessionID}

	default:
		return state
	}
}
