// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/model"
)

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader_ReadEvent(t *testing.T) {
	input := "data: {\"type\":\"text-delta\",\"delta\":\"Hi\"}\n\n" +
		"event: note\ndata: {\"type\":\"finish\"}\n\n"
	r := NewSSEReader(strings.NewReader(input))

	evType, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if evType != "" {
		t.Errorf("event type = %q, want empty", evType)
	}
	if !strings.Contains(string(data), "text-delta") {
		t.Errorf("data = %q", data)
	}

	evType, _, err = r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if evType != "note" {
		t.Errorf("event type = %q, want note", evType)
	}

	if _, _, err = r.ReadEvent(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestSSEReader_CRLFAndComments(t *testing.T) {
	input := ": keepalive\r\ndata: {\"type\":\"finish\"}\r\n\r\n"
	r := NewSSEReader(strings.NewReader(input))

	_, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if strings.Contains(string(data), "keepalive") {
		t.Errorf("comment leaked into data: %q", data)
	}
}

func TestSSEReader_FlushesDataAtEOF(t *testing.T) {
	// Stream cut mid-event, no trailing blank line.
	r := NewSSEReader(strings.NewReader("data: {\"type\":\"text-delta\",\"delta\":\"Partial\"}\n"))
	_, data, err := r.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if !strings.Contains(string(data), "Partial") {
		t.Errorf("data = %q", data)
	}
}

// =============================================================================
// EVENT PARSING TESTS
// =============================================================================

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
	}{
		{
			"text delta",
			`{"type":"text-delta","delta":"Hi"}`,
			Event{Type: EventTextDelta, Delta: "Hi"},
		},
		{
			"reasoning alias",
			`{"type":"reasoning","text":"hmm"}`,
			Event{Type: EventReasoningDelta, Delta: "hmm"},
		},
		{
			"source url",
			`{"type":"source-url","url":"https://example.com"}`,
			Event{Type: EventSourceURL, URL: "https://example.com"},
		},
		{
			"finish with usage",
			`{"type":"finish","finishReason":"stop","usage":{"inputTokens":3,"outputTokens":9,"totalTokens":12}}`,
			Event{Type: EventFinish, FinishReason: "stop", Usage: model.Usage{InputTokens: 3, OutputTokens: 9, TotalTokens: 12}},
		},
		{
			"error frame",
			`{"type":"error","errorText":"overloaded"}`,
			Event{Type: EventError, Message: "overloaded"},
		},
		{
			"unknown type",
			`{"type":"tool-call-delta","delta":"{}"}`,
			Event{Type: EventUnknown},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEvent([]byte(tt.data))
			if err != nil {
				t.Fatalf("ParseEvent failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseEvent = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseEvent_MalformedJSON(t *testing.T) {
	if _, err := ParseEvent([]byte("{not json")); err == nil {
		t.Error("expected error for malformed frame")
	}
}

// =============================================================================
// LIVE STREAM TESTS
// =============================================================================

func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			io.WriteString(w, "data: "+f+"\n\n")
			flusher.Flush()
		}
	}))
}

func TestStream_FullTurn(t *testing.T) {
	srv := sseServer(t, []string{
		`{"type":"text-delta","delta":"Hi"}`,
		`{"type":"text-delta","delta":" there"}`,
		`{"type":"finish","finishReason":"stop","usage":{"totalTokens":4}}`,
		`[DONE]`,
	})
	defer srv.Close()

	s, err := Open(context.Background(), api.NewClient(srv.URL), api.TurnRequest{Model: "m1"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	a := NewAssembler("conv-42")
	a.BeginTurn(model.NewUserMessage("hello"))

	for {
		ev, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		a.Apply(ev)
	}

	if a.Status() != model.StatusDone {
		t.Errorf("status = %s, want done", a.Status())
	}
	if got := a.Assistant().Text(); got != "Hi there" {
		t.Errorf("Text() = %q, want %q", got, "Hi there")
	}
	if len(a.Assistant().Parts) != 1 {
		t.Errorf("Parts count = %d, want 1", len(a.Assistant().Parts))
	}
}

func TestStream_SkipsMalformedFrames(t *testing.T) {
	srv := sseServer(t, []string{
		`{"type":"text-delta","delta":"ok"}`,
		`{broken`,
		`{"type":"finish"}`,
		`[DONE]`,
	})
	defer srv.Close()

	s, err := Open(context.Background(), api.NewClient(srv.URL), api.TurnRequest{Model: "m1"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	var types []EventType
	for {
		ev, err := s.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		types = append(types, ev.Type)
	}
	if len(types) != 2 || types[0] != EventTextDelta || types[1] != EventFinish {
		t.Errorf("event types = %v", types)
	}
}

func TestStream_ConnectionDropMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"type\":\"text-delta\",\"delta\":\"Partial\"}\n\n")
		w.(http.Flusher).Flush()
		// Abort without a terminal frame.
		conn, _, _ := w.(http.Hijacker).Hijack()
		conn.Close()
	}))
	defer srv.Close()

	s, err := Open(context.Background(), api.NewClient(srv.URL), api.TurnRequest{Model: "m1"})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	a := NewAssembler("conv-42")
	a.BeginTurn(model.NewUserMessage("hello"))

	for {
		ev, err := s.Next()
		if err == io.EOF {
			// Clean EOF without finish still leaves the turn unterminated;
			// the controller treats it as a drop.
			a.Fail(io.ErrUnexpectedEOF)
			break
		}
		if err != nil {
			a.Fail(err)
			break
		}
		a.Apply(ev)
	}

	if a.Status() != model.StatusErrored {
		t.Errorf("status = %s, want errored", a.Status())
	}
	if got := a.Assistant().Text(); got != "Partial" {
		t.Errorf("Text() = %q, want %q", got, "Partial")
	}
}

func TestOpen_Non2xxFailsBeforeBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"bad model"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := Open(context.Background(), api.NewClient(srv.URL), api.TurnRequest{Model: "nope"})
	if err == nil {
		t.Fatal("expected error")
	}

	a := NewAssembler("conv-42")
	a.BeginTurn(model.NewUserMessage("hello"))
	a.Fail(err)
	if a.Assistant() != nil {
		t.Error("no partial message before first byte")
	}
}
