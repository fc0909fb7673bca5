// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store owns the session state and its transitions.
package store

import (
	"log"
	"sync"

	"github.com/wokushop/wokuchat/internal/model"
)

// =============================================================================
// PERSISTENCE PORT
// =============================================================================

// Persister is the store's persistence port. Load returns the saved
// state and true, or false when nothing has been persisted yet. Save
// writes the full state as one unit.
type Persister interface {
	Load() (model.State, bool, error)
	Save(state model.State) error
}

// =============================================================================
// STORE
// =============================================================================

// Store wraps the reducer as process-lifetime mutable state. All
// transitions are serialized by the mutex, so no caller can observe a
// half-applied transition.
type Store struct {
	mu        sync.Mutex
	state     model.State
	persister Persister
	onChange  func(model.State)
}

// New builds a store hydrated from the persister. An absent blob
// starts empty; a failed load is logged and also starts empty. A nil
// persister keeps the store purely in-memory (used by tests).
func New(p Persister) *Store {
	s := &Store{state: model.NewState(), persister: p}
	if p == nil {
		return s
	}
	saved, ok, err := p.Load()
	switch {
	case err != nil:
		log.Printf("store: load failed, starting with empty state: %v", err)
	case ok:
		s.state = Reduce(s.state, LoadState{State: saved})
	}
	return s
}

// SetOnChange registers a callback invoked with a state snapshot after
// every transition. UIs subscribe here to re-render.
func (s *Store) SetOnChange(fn func(model.State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Dispatch applies an action, persists the new state, and notifies the
// change listener. A persistence failure is logged and otherwise
// ignored; the in-memory state remains authoritative.
func (s *Store) Dispatch(action Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	snapshot := s.state.Clone()
	fn := s.onChange
	s.mu.Unlock()

	s.afterDispatch(snapshot, fn)
}

// afterDispatch runs the persist-and-notify tail outside the lock so a
// listener re-entering the store cannot deadlock.
func (s *Store) afterDispatch(snapshot model.State, fn func(model.State)) {
	if s.persister != nil {
		if err := s.persister.Save(snapshot); err != nil {
			log.Printf("store: save failed (state kept in memory): %v", err)
		}
	}
	if fn != nil {
		fn(snapshot)
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// CreateSession creates a new empty session, makes it active, and
// returns its id. The id is read in the same critical section as the
// transition so a concurrent dispatch cannot change it first.
func (s *Store) CreateSession() string {
	s.mu.Lock()
	s.state = Reduce(s.state, CreateSession{})
	id := s.state.ActiveSessionID
	snapshot := s.state.Clone()
	fn := s.onChange
	s.mu.Unlock()

	s.afterDispatch(snapshot, fn)
	return id
}

// DeleteSession removes a session. Deleting the active session
// activates the first remaining one, or none.
func (s *Store) DeleteSession(id string) {
	s.Dispatch(DeleteSession{ID: id})
}

// SetActiveSession switches the active session id.
func (s *Store) SetActiveSession(id string) {
	s.Dispatch(SetActiveSession{ID: id})
}

// AddMessage appends a message to the given session. No-ops when the
// session no longer exists.
func (s *Store) AddMessage(sessionID string, msg model.Message) {
	s.Dispatch(AddMessage{SessionID: sessionID, Message: msg})
}

// UpdateSessionTitle overwrites a session's title.
func (s *Store) UpdateSessionTitle(sessionID, title string) {
	s.Dispatch(UpdateSessionTitle{SessionID: sessionID, Title: title})
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// ActiveSessionID returns the current active session id, "" when none.
func (s *Store) ActiveSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveSessionID
}

// ActiveSession returns a copy of the active session and true, or
// false when there is no active session or the id is stale.
func (s *Store) ActiveSession() (model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveSession()
}

// Session returns a copy of the session with the given id.
func (s *Store) Session(id string) (model.ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionByID(id)
}

// SessionCount returns the number of sessions.
func (s *Store) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.Sessions)
}
