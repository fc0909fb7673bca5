// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides persistence adapters for the session store.
package storage

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/wokushop/wokuchat/internal/model"
)

// StorageKey is the well-known key the whole state is persisted under.
// It predates this implementation; changing it would orphan existing
// data.
const StorageKey = "chatbot_ai_sessions"

// SchemaVersion is the current persisted-blob schema version.
const SchemaVersion = 1

// envelope wraps the state with a schema version for forward
// compatibility. The first shipped layout had no version field, so a
// blob that fails to carry one is treated as version 0 and read as a
// bare State.
type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// encodeState serializes the state inside a versioned envelope.
func encodeState(state model.State) ([]byte, error) {
	inner, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	data, err := json.MarshalIndent(envelope{Version: SchemaVersion, State: inner}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return data, nil
}

// decodeState reads a persisted blob back into a State.
//
// Version 0 (no envelope) migrates by decoding the blob as a bare
// State. An unknown future version loads as empty state: there is no
// way to guess what a newer schema means, and losing the active view
// beats corrupting it.
func decodeState(data []byte) (model.State, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.State{}, fmt.Errorf("failed to parse persisted state: %w", err)
	}

	switch {
	case env.Version == SchemaVersion:
		var state model.State
		if err := json.Unmarshal(env.State, &state); err != nil {
			return model.State{}, fmt.Errorf("failed to parse state payload: %w", err)
		}
		return normalize(state), nil

	case env.Version == 0 && env.State == nil:
		// Legacy layout: the blob is the State itself.
		var state model.State
		if err := json.Unmarshal(data, &state); err != nil {
			return model.State{}, fmt.Errorf("failed to parse legacy state: %w", err)
		}
		return normalize(state), nil

	default:
		log.Printf("storage: unknown schema version %d, starting with empty state", env.Version)
		return model.NewState(), nil
	}
}

// normalize fills nil slices so decoded state compares equal to
// freshly built state.
func normalize(state model.State) model.State {
	if state.Sessions == nil {
		state.Sessions = []model.ChatSession{}
	}
	for i := range state.Sessions {
		if state.Sessions[i].Messages == nil {
			state.Sessions[i].Messages = []model.Message{}
		}
	}
	return state
}
