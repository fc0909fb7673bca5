// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates the send workflow.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wokushop/wokuchat/internal/backend"
	"github.com/wokushop/wokuchat/internal/model"
	"github.com/wokushop/wokuchat/internal/store"
)

// maxHistoryMessages bounds the history sent to the backend: only the
// most recent entries go on the wire.
const maxHistoryMessages = 20

// Failure messages shown as assistant turns. Each class is worded so
// the user can tell them apart. FailurePrefix is exported so the UI can
// style failure turns differently.
const (
	FailurePrefix = "Something went wrong. "

	authFailureReason    = "Invalid API key. Please check your configuration."
	rateLimitReason      = "Rate limit reached. Please try again in a moment."
	genericFailureReason = "Please try again."
)

// =============================================================================
// WORKFLOW
// =============================================================================

// Workflow turns user input into completion requests and store
// appends. Safe for concurrent use; only one send proceeds at a time.
type Workflow struct {
	store    *store.Store
	inFlight atomic.Bool

	mu        sync.RWMutex
	completer backend.Completer
}

// NewWorkflow creates a send workflow over a store and a completer.
func NewWorkflow(st *store.Store, completer backend.Completer) *Workflow {
	return &Workflow{store: st, completer: completer}
}

// SetCompleter swaps the backend completer. In-flight sends keep the
// completer they started with; the next send picks up the new one.
// Used for config reload and for wiring streaming sinks after startup.
func (w *Workflow) SetCompleter(c backend.Completer) {
	w.mu.Lock()
	w.completer = c
	w.mu.Unlock()
}

func (w *Workflow) getCompleter() backend.Completer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.completer
}

// Busy reports whether a send is outstanding. Callers use this to gate
// input, not to synchronize data access.
func (w *Workflow) Busy() bool {
	return w.inFlight.Load()
}

// Submit sends free text to the active session. When no session exists
// yet, one is created first and the queued text goes to it exactly
// once, neither lost nor duplicated. Returns true if a send started.
func (w *Workflow) Submit(ctx context.Context, text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || w.Busy() {
		return false
	}

	sessionID := w.store.ActiveSessionID()
	if sessionID == "" {
		sessionID = w.store.CreateSession()
	}
	return w.Send(ctx, sessionID, trimmed)
}

// Send runs the full workflow against one session. It rejects empty
// input, a missing session id, and overlapping sends; every other
// outcome appends exactly one user message followed by exactly one
// assistant message (the reply or a classified failure). Returns true
// if the send ran.
func (w *Workflow) Send(ctx context.Context, sessionID, text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || sessionID == "" {
		return false
	}
	if !w.inFlight.CompareAndSwap(false, true) {
		return false
	}
	// Guaranteed release: the flag clears on every exit path.
	defer w.inFlight.Store(false)

	w.store.AddMessage(sessionID, model.NewUserMessage(trimmed))

	// Re-fetch after the append so the new user message is included in
	// the history exactly once.
	history := w.buildHistory(sessionID, trimmed)

	start := time.Now()
	completion, err := w.getCompleter().Complete(ctx, history)
	if err != nil {
		// The append no-ops if the session was deleted mid-flight.
		w.store.AddMessage(sessionID, model.NewAssistantMessage(failureMessage(err)))
		return true
	}

	reply := model.NewAssistantMessage(completion.Text)
	elapsed := time.Since(start).Milliseconds()
	reply.ResponseTime = &elapsed
	if completion.Usage != nil {
		reply.Tokens = &model.TokenUsage{
			Prompt:     completion.Usage.PromptTokens,
			Completion: completion.Usage.CompletionTokens,
			Total:      completion.Usage.TotalTokens,
		}
	}
	w.store.AddMessage(sessionID, reply)
	return true
}

// buildHistory maps the session's messages to wire form, truncated to
// the most recent maxHistoryMessages entries. If the session vanished
// between append and fetch, the lone user turn still goes out.
func (w *Workflow) buildHistory(sessionID, userText string) []backend.ChatMessage {
	sess, ok := w.store.Session(sessionID)
	if !ok {
		return []backend.ChatMessage{backend.NewUserMessage(userText)}
	}

	msgs := sess.Messages
	if len(msgs) > maxHistoryMessages {
		msgs = msgs[len(msgs)-maxHistoryMessages:]
	}

	history := make([]backend.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, backend.ChatMessage{Role: m.Role.String(), Content: m.Content})
	}
	return history
}

// failureMessage classifies a backend error into the user-facing
// assistant text.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, backend.ErrAuthFailed):
		return FailurePrefix + authFailureReason
	case errors.Is(err, backend.ErrRateLimited):
		return FailurePrefix + rateLimitReason
	default:
		return FailurePrefix + genericFailureReason
	}
}
