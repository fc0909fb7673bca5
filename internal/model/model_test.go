// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"
	"testing"
)

// =============================================================================
// TITLE DERIVATION TESTS
// =============================================================================

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "markdown stripped",
			input:    "# Hello **world**",
			expected: "Hello world",
		},
		{
			name:     "code markers stripped",
			input:    "run `go build` please",
			expected: "run go build please",
		},
		{
			name:     "short input unchanged",
			input:    "What is Go?",
			expected: "What is Go?",
		},
		{
			name:     "whitespace trimmed",
			input:    "  hello  ",
			expected: "hello",
		},
		{
			name:     "exactly forty characters kept",
			input:    strings.Repeat("a", 40),
			expected: strings.Repeat("a", 40),
		},
		{
			name:     "fifty characters truncated to forty plus ellipsis",
			input:    strings.Repeat("a", 50),
			expected: strings.Repeat("a", 40) + "...",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveTitle(tc.input)
			if got != tc.expected {
				t.Errorf("DeriveTitle(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestDeriveTitle_RuneSafe(t *testing.T) {
	// 50 CJK runes must truncate at a rune boundary, not a byte one.
	input := strings.Repeat("日", 50)
	got := DeriveTitle(input)
	want := strings.Repeat("日", 40) + "..."
	if got != want {
		t.Errorf("DeriveTitle CJK = %q, want %q", got, want)
	}
}

// =============================================================================
// ID GENERATION TESTS
// =============================================================================

var uuidV4Pattern = regexp.MustCompile(
	`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNewID_Shape(t *testing.T) {
	id := NewID()
	if !uuidV4Pattern.MatchString(id) {
		t.Errorf("NewID() = %q, not a v4 UUID", id)
	}
}

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id after %d generations: %s", i, id)
		}
		seen[id] = true
	}
}

func TestFallbackID_Shape(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := fallbackID()
		if !uuidV4Pattern.MatchString(id) {
			t.Fatalf("fallbackID() = %q, not v4 shaped", id)
		}
	}
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage(t *testing.T) {
	msg := NewUserMessage("hello")
	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if msg.ID == "" {
		t.Error("ID is empty")
	}
	if msg.Timestamp == 0 {
		t.Error("Timestamp not set")
	}
	if msg.ResponseTime != nil || msg.Tokens != nil {
		t.Error("metadata should be absent on a fresh user message")
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		maxLen   int
		expected string
	}{
		{"short", "hi", 10, "hi"},
		{"truncated", "hello world", 8, "hello..."},
		{"cjk", "你好世界你好", 5, "你好..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := Message{Content: tc.content}
			got := msg.Preview(tc.maxLen)
			if got != tc.expected {
				t.Errorf("Preview(%d) = %q, want %q", tc.maxLen, got, tc.expected)
			}
		})
	}
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
		{Role("tool"), "tool"},
	}

	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tc.role, got, tc.want)
		}
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession(t *testing.T) {
	sess := NewSession()
	if sess.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", sess.Title, DefaultTitle)
	}
	if len(sess.Messages) != 0 {
		t.Errorf("Messages not empty: %d", len(sess.Messages))
	}
	if sess.CreatedAt == 0 || sess.UpdatedAt != sess.CreatedAt {
		t.Errorf("timestamps: created=%d updated=%d", sess.CreatedAt, sess.UpdatedAt)
	}
}

func TestSession_HasUserMessage(t *testing.T) {
	sess := NewSession()
	if sess.HasUserMessage() {
		t.Error("empty session reports a user message")
	}

	sess.Messages = append(sess.Messages, NewAssistantMessage("hi"))
	if sess.HasUserMessage() {
		t.Error("assistant-only session reports a user message")
	}

	sess.Messages = append(sess.Messages, NewUserMessage("hello"))
	if !sess.HasUserMessage() {
		t.Error("session with user message reports none")
	}
}

func TestSession_Clone_Independent(t *testing.T) {
	sess := NewSession()
	sess.Messages = append(sess.Messages, NewUserMessage("original"))

	clone := sess.Clone()
	clone.Messages[0].Content = "mutated"
	clone.Messages = append(clone.Messages, NewUserMessage("extra"))

	if sess.Messages[0].Content != "original" {
		t.Error("clone shares message backing array with original")
	}
	if len(sess.Messages) != 1 {
		t.Errorf("original message count changed: %d", len(sess.Messages))
	}
}

// =============================================================================
// STATE TESTS
// =============================================================================

func TestState_ActiveSession(t *testing.T) {
	a := NewSession()
	b := NewSession()
	state := State{Sessions: []ChatSession{a, b}, ActiveSessionID: b.ID}

	got, ok := state.ActiveSession()
	if !ok || got.ID != b.ID {
		t.Errorf("ActiveSession() = %v, %v, want session %s", got.ID, ok, b.ID)
	}

	// Stale id behaves like no active session.
	state.ActiveSessionID = "no-such-id"
	if _, ok := state.ActiveSession(); ok {
		t.Error("stale active id resolved to a session")
	}

	state.ActiveSessionID = ""
	if _, ok := state.ActiveSession(); ok {
		t.Error("empty active id resolved to a session")
	}
}

func TestState_RoundTrip(t *testing.T) {
	sess := NewSession()
	sess.Messages = append(sess.Messages, NewUserMessage("hello"))
	rt := int64(420)
	asst := NewAssistantMessage("hi there")
	asst.ResponseTime = &rt
	asst.Tokens = &TokenUsage{Prompt: 10, Completion: 5, Total: 15}
	sess.Messages = append(sess.Messages, asst)
	sess.Title = DeriveTitle("hello")

	state := State{Sessions: []ChatSession{sess}, ActiveSessionID: sess.ID}

	data, err := json.Marshal(state)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded State
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(state, decoded) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, state)
	}
}
