// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func sseChunk(content string) string {
	return `data: {"id":"c1","choices":[{"delta":{"content":` + jsonString(content) + `},"finish_reason":""}]}` + "\n\n"
}

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader_ReadEvent(t *testing.T) {
	input := "data: first\n\nevent: ping\ndata: second\n\ndata: [DONE]\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	event, data, err := reader.ReadEvent()
	if err != nil || string(data) != "first" || event != "" {
		t.Fatalf("first event = (%q, %q, %v)", event, data, err)
	}

	event, data, err = reader.ReadEvent()
	if err != nil || string(data) != "second" || event != "ping" {
		t.Fatalf("second event = (%q, %q, %v)", event, data, err)
	}

	_, data, err = reader.ReadEvent()
	if err != nil || string(data) != "[DONE]" {
		t.Fatalf("third event = (%q, %v)", data, err)
	}

	_, _, err = reader.ReadEvent()
	if err != io.EOF {
		t.Fatalf("err = %v, want io.EOF", err)
	}
}

func TestSSEReader_CRLFAndComments(t *testing.T) {
	input := ": keepalive\r\ndata: payload\r\n\r\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil || string(data) != "payload" {
		t.Fatalf("event = (%q, %v)", data, err)
	}
}

func TestSSEReader_DataBeforeEOFWithoutBlankLine(t *testing.T) {
	reader := NewSSEReader(strings.NewReader("data: tail"))

	_, data, err := reader.ReadEvent()
	if err != nil || string(data) != "tail" {
		t.Fatalf("event = (%q, %v)", data, err)
	}
}

// =============================================================================
// STREAMING COMPLETION TESTS
// =============================================================================

func TestCompleteStreaming_AccumulatesFragments(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("Hel"))
		io.WriteString(w, sseChunk("lo "))
		io.WriteString(w, sseChunk("world"))
		io.WriteString(w, `data: {"id":"c1","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	var deltas []string
	got, err := client.CompleteStreaming(context.Background(),
		[]ChatMessage{NewUserMessage("hi")},
		func(text string) { deltas = append(deltas, text) })
	if err != nil {
		t.Fatalf("CompleteStreaming failed: %v", err)
	}

	if got.Text != "Hello world" {
		t.Errorf("Text = %q, want %q", got.Text, "Hello world")
	}
	if got.Usage == nil || got.Usage.TotalTokens != 8 {
		t.Errorf("Usage = %+v, want total 8", got.Usage)
	}
	if len(deltas) != 3 || deltas[0] != "Hel" {
		t.Errorf("deltas = %v", deltas)
	}
}

func TestCompleteStreaming_NilCallback(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("ok"))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	got, err := client.CompleteStreaming(context.Background(), []ChatMessage{NewUserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("CompleteStreaming failed: %v", err)
	}
	if got.Text != "ok" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestCompleteStreaming_SkipsMalformedChunks(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {not json\n\n")
		io.WriteString(w, sseChunk("fine"))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	got, err := client.CompleteStreaming(context.Background(), []ChatMessage{NewUserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("CompleteStreaming failed: %v", err)
	}
	if got.Text != "fine" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestCompleteStreaming_ErrorStatus(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"message": "slow down"}}`)
	})

	_, err := client.CompleteStreaming(context.Background(), []ChatMessage{NewUserMessage("hi")}, nil)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
}

func TestCompleteStreaming_EOFWithoutDone(t *testing.T) {
	// A stream cut off before [DONE] still yields the accumulated text.
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("partial"))
	})

	got, err := client.CompleteStreaming(context.Background(), []ChatMessage{NewUserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("CompleteStreaming failed: %v", err)
	}
	if got.Text != "partial" {
		t.Errorf("Text = %q", got.Text)
	}
}

// =============================================================================
// COMPLETER SELECTION TESTS
// =============================================================================

func TestNewCompleter_ModeSelection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(okResponse("blocking")))
	})

	once := NewCompleter(client, false, nil)
	got, err := once.Complete(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if err != nil {
		t.Fatalf("blocking Complete failed: %v", err)
	}
	if got.Text != "blocking" {
		t.Errorf("Text = %q", got.Text)
	}

	streamClient := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("streamed"))
		io.WriteString(w, "data: [DONE]\n\n")
	})

	streaming := NewCompleter(streamClient, true, nil)
	got, err = streaming.Complete(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if err != nil {
		t.Fatalf("streaming Complete failed: %v", err)
	}
	if got.Text != "streamed" {
		t.Errorf("Text = %q", got.Text)
	}
}

func TestStreamError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &StreamError{Partial: "some text", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("StreamError does not unwrap to inner error")
	}
	if !strings.Contains(err.Error(), "partial content") {
		t.Errorf("Error() = %q, want partial note", err.Error())
	}
}
