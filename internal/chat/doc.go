// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat orchestrates the send workflow: user text in, a
// user/assistant message pair appended to the right session.
//
// One send runs at a time. The in-flight flag is a UI-level gate, not
// a data lock; other store transitions (creating or deleting sessions)
// interleave freely while a request is outstanding. Backend failures
// never escape as errors: they are converted into an assistant message
// carrying an apologetic, classified reason, so the transcript is the
// only user-visible error channel.
//
// A send issued with no session first creates one, then submits the
// queued text to the new session exactly once.
package chat
