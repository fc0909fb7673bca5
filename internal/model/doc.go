// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the core domain types shared by the store, the
// persistence adapters, and the UI:
//
//   - Message: a single conversation turn with role, content and timestamp
//   - ChatSession: one conversation thread with its message history and title
//   - State: the full application state (all sessions plus the active one)
//   - Role: message author enumeration (user, assistant, system)
//
// Timestamps are epoch milliseconds throughout, matching the persisted
// JSON layout. All types are plain values; transitions over them belong
// to the store package.
//
// # Usage
//
//	msg := model.NewUserMessage("Hello!")
//	sess := model.NewSession()
//	title := model.DeriveTitle(msg.Content)
package model
