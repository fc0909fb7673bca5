// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the session state and its transitions.
//
// State changes flow through a pure reducer: Reduce maps (state,
// action) to a new state without touching its inputs, which keeps
// every transition independently testable. The Store wraps the reducer
// with a mutex, hydrates from an injected Persister at construction,
// and persists the full state after every dispatch.
//
// Persistence failures are logged and swallowed: the in-memory state
// stays authoritative for the lifetime of the process, and a broken
// disk must never take the chat down with it.
//
// # Usage
//
//	st := store.New(persister)
//	id := st.CreateSession()
//	st.AddMessage(id, model.NewUserMessage("hello"))
//	sess, ok := st.ActiveSession()
package store
