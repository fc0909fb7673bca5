// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the completion backend client.
package backend

import "context"

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatMessage is one role/content pair on the wire.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", or "system"
	Content string `json:"content"`
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// ChatRequest is the request body for the chat completions endpoint.
type ChatRequest struct {
	Model         string         `json:"model"`
	Messages      []ChatMessage  `json:"messages"`
	Stream        bool           `json:"stream"`
	Temperature   float64        `json:"temperature,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

// StreamOptions asks the backend to attach usage to the final chunk.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// Usage holds token counts reported by the backend.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the response body of a blocking completion.
type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// GetContent returns the content of the first choice, or "".
func (r *ChatResponse) GetContent() string {
	if len(r.Choices) > 0 {
		return r.Choices[0].Message.Content
	}
	return ""
}

// apiErrorResponse is the error envelope the backend returns.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// COMPLETER CAPABILITY
// =============================================================================

// Completion is the outcome of one completion request, regardless of
// the request mode that produced it.
type Completion struct {
	Text  string
	Usage *Usage
}

// Completer turns an ordered message history into a completion. Both
// request modes implement it.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (*Completion, error)
}

// onceCompleter selects the blocking mode.
type onceCompleter struct {
	client *Client
}

func (o onceCompleter) Complete(ctx context.Context, messages []ChatMessage) (*Completion, error) {
	return o.client.CompleteOnce(ctx, messages)
}

// streamCompleter selects the streaming mode. onDelta, when set, is
// called with each text fragment as it arrives.
type streamCompleter struct {
	client  *Client
	onDelta func(text string)
}

func (s streamCompleter) Complete(ctx context.Context, messages []ChatMessage) (*Completion, error) {
	return s.client.CompleteStreaming(ctx, messages, s.onDelta)
}

// NewCompleter wraps a client in the configured request mode.
func NewCompleter(client *Client, streaming bool, onDelta func(text string)) Completer {
	if streaming {
		return streamCompleter{client: client, onDelta: onDelta}
	}
	return onceCompleter{client: client}
}
