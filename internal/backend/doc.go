// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the completion backend client.
//
// The client speaks the OpenAI-compatible chat completions protocol
// over HTTPS and supports two request modes behind one capability
// interface:
//
//   - CompleteOnce: a single blocking call returning text plus usage
//   - CompleteStreaming: SSE deltas accumulated into the final text,
//     with an optional callback per fragment for incremental display
//
// Which mode a Completer uses is a construction-time choice; callers
// see only "messages in, final text plus optional usage out".
//
// Failures carry an implied classification for the send workflow:
// errors.Is(err, ErrAuthFailed) and errors.Is(err, ErrRateLimited)
// distinguish the cases that get their own user-facing message.
// Transient server errors are retried with exponential backoff; a
// client-side rate limiter bounds outbound request rate.
package backend
