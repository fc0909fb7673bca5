// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the completion backend client.
package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// STREAM TYPES
// =============================================================================

// StreamChunk is one SSE fragment of a streaming completion.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// GetContent returns the text delta of the first choice, or "".
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// IsDone reports whether the backend marked this chunk final.
func (c *StreamChunk) IsDone() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != ""
}

// StreamError preserves partial content received before a mid-stream
// failure.
type StreamError struct {
	Partial string
	Err     error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Partial != "" {
		return fmt.Sprintf("stream error (partial content received: %d chars): %v", len(e.Partial), e.Err)
	}
	return fmt.Sprintf("stream error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates an SSE reader over an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next SSE event and returns its type and data.
// The event type is usually empty for completion streams. Returns
// io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line ends the event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// id:, retry: and comment lines are ignored.
	}
}

// =============================================================================
// STREAMING COMPLETION
// =============================================================================

// CompleteStreaming performs a streaming completion request. Fragments
// are accumulated into the final Completion; onDelta, when non-nil, is
// invoked with each text fragment as it arrives. The stream ends at
// the [DONE] marker or a finish reason.
func (c *Client) CompleteStreaming(ctx context.Context, messages []ChatMessage, onDelta func(string)) (*Completion, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if err := c.waitLimiter(ctx); err != nil {
		return nil, err
	}

	reqBody := ChatRequest{
		Model:         c.model,
		Messages:      c.withSystemPrompt(messages),
		Stream:        true,
		Temperature:   c.temperature,
		MaxTokens:     c.maxTokens,
		StreamOptions: &StreamOptions{IncludeUsage: true},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.logRequest(req)
	resp, err := sharedStreamingClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := readResponse(resp)
		return nil, handleErrorResponse(resp.StatusCode, body)
	}

	return c.processStream(ctx, resp.Body, onDelta)
}

// processStream drains the SSE body, accumulating fragments.
func (c *Client) processStream(ctx context.Context, body io.Reader, onDelta func(string)) (*Completion, error) {
	reader := NewSSEReader(body)
	var accumulated strings.Builder
	var usage *Usage

	for {
		select {
		case <-ctx.Done():
			return nil, &StreamError{Partial: accumulated.String(), Err: ctx.Err()}
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return &Completion{Text: accumulated.String(), Usage: usage}, nil
			}
			return nil, &StreamError{Partial: accumulated.String(), Err: err}
		}

		// Terminal marker.
		if bytes.Equal(data, []byte("[DONE]")) {
			return &Completion{Text: accumulated.String(), Usage: usage}, nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks rather than abort the stream.
			continue
		}

		if text := chunk.GetContent(); text != "" {
			accumulated.WriteString(text)
			if onDelta != nil {
				onDelta(text)
			}
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
	}
}
