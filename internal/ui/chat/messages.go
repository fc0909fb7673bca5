// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wokushop/wokuchat/internal/model"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StateChangedMsg reports that the session store changed. The TUI
// re-renders from the attached snapshot.
type StateChangedMsg struct {
	State model.State
}

// StreamDeltaMsg carries one streaming text fragment for the in-flight
// assistant reply.
type StreamDeltaMsg struct {
	Delta string
}

// SendDoneMsg reports a finished send workflow. Accepted is false when
// the send was rejected up front (empty text, busy, missing session).
type SendDoneMsg struct {
	Accepted bool
}

// =============================================================================
// CHANNEL PUMPS
// =============================================================================

// The store and completer callbacks run on their own goroutines; channel
// pumps translate them into Bubble Tea messages. Each pump command reads
// one value and is re-armed by Update.

func waitForState(ch <-chan model.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return StateChangedMsg{State: st}
	}
}

func waitForDelta(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		delta, ok := <-ch
		if !ok {
			return nil
		}
		return StreamDeltaMsg{Delta: delta}
	}
}
