// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/damazzy/mira-chatbot/internal/api"
	"github.com/damazzy/mira-chatbot/internal/config"
	"github.com/damazzy/mira-chatbot/internal/handoff"
	"github.com/damazzy/mira-chatbot/internal/localstore"
	"github.com/damazzy/mira-chatbot/internal/model"
	"github.com/damazzy/mira-chatbot/internal/modelsel"
	"github.com/damazzy/mira-chatbot/internal/querycache"
	"github.com/damazzy/mira-chatbot/internal/stream"
)

// testBackend is a minimal fake of the chat API for UI flow tests.
type testBackend struct {
	mu            sync.Mutex
	streamFrames  []string
	streamStatus  int
	hangStream    bool
	title         string
	lastTurnModel string
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (b *testBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chat/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, api.ModelsList{
			Models:       []api.ModelInfo{{ID: "m-fast"}, {ID: "m-smart"}},
			DefaultModel: "m-fast",
		})
	})
	mux.HandleFunc("GET /api/chat/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []model.Summary{})
	})
	mux.HandleFunc("POST /api/chat/sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, model.Conversation{ID: "conv-1", Model: "m-fast", CreatedAt: time.Now()})
	})
	mux.HandleFunc("GET /api/chat/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		title := b.title
		b.mu.Unlock()
		conv := model.Conversation{ID: r.PathValue("id"), Model: "m-fast", CreatedAt: time.Now()}
		if title != "" {
			conv.Title = &title
		}
		writeJSON(w, conv)
	})
	mux.HandleFunc("PATCH /api/chat/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title *string `json:"title"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		if req.Title != nil {
			b.title = *req.Title
		}
		title := b.title
		b.mu.Unlock()
		conv := model.Conversation{ID: r.PathValue("id"), Model: "m-fast", Title: &title}
		writeJSON(w, conv)
	})
	mux.HandleFunc("GET /api/chat/sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []api.MessageRecord{})
	})
	mux.HandleFunc("POST /api/chat/stream", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		b.mu.Lock()
		b.lastTurnModel = req.Model
		frames := b.streamFrames
		status := b.streamStatus
		hang := b.hangStream
		b.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"detail":"model overloaded"}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
			flusher.Flush()
		}
		if hang {
			// Hold the stream open until the client gives up.
			<-r.Context().Done()
			return
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	})
	return mux
}

// newTestModel wires a full model against the fake backend.
func newTestModel(t *testing.T, baseURL string) *Model {
	t.Helper()

	db, err := localstore.Open(filepath.Join(t.TempDir(), "mira.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.API.BaseURL = baseURL
	cfg.API.UserID = "u-1"

	m := New(cfg,
		api.NewClient(baseURL),
		querycache.New(db.Durable()),
		handoff.NewChannel(db.Scoped()),
		modelsel.NewState(db.Durable()),
	)
	m.width = 80
	m.height = 24
	return m
}

// run executes a command tree, feeding resulting messages back into the
// model. Tick messages are delivered but their follow-up commands are
// dropped so the helper terminates.
func run(t *testing.T, m *Model, cmd tea.Cmd, depth int) {
	t.Helper()
	if cmd == nil || depth > 64 {
		return
	}
	msg := cmd()
	if msg == nil {
		return
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, sub := range batch {
			run(t, m, sub, depth+1)
		}
		return
	}
	_, next := m.Update(msg)
	switch msg.(type) {
	case StreamTickMsg, ClearStatusMsg:
		return
	}
	run(t, m, next, depth+1)
}

func TestCreationHandoffFirstTurn(t *testing.T) {
	backend := &testBackend{title: "First chat", streamFrames: []string{
		`{"type":"text-delta","delta":"Hi"}`,
		`{"type":"text-delta","delta":" there"}`,
		`{"type":"finish","finishReason":"stop","usage":{"inputTokens":3,"outputTokens":2,"totalTokens":5}}`,
	}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)

	// Compose the first message on the home screen.
	_, cmd := m.submitComposer("Hello")
	run(t, m, cmd, 0)

	require.Equal(t, viewConversation, m.view)
	require.Equal(t, "conv-1", m.activeID)

	ctrl := m.active()
	require.NotNil(t, ctrl)
	require.False(t, ctrl.Streaming(), "turn should have completed")

	// Session metadata resolved through the cache on mount.
	require.NotNil(t, ctrl.conv)
	require.Equal(t, "First chat", ctrl.conv.DisplayTitle())

	// One user message, one assistant message with the deltas joined
	// into a single text part.
	require.Len(t, ctrl.messages, 2)
	require.Equal(t, "Hello", ctrl.messages[0].Text())

	assistant := ctrl.messages[1]
	require.Equal(t, model.RoleAssistant, assistant.Role)
	require.Len(t, assistant.Parts, 1)
	require.Equal(t, "Hi there", assistant.Text())
	require.Equal(t, 5, assistant.TotalTokens)

	// The handoff payload was consumed: reopening must not restart the
	// turn.
	_, found, err := m.handoff.Consume("conv-1")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStreamFailureBeforeBytes(t *testing.T) {
	backend := &testBackend{streamStatus: http.StatusServiceUnavailable}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	_, cmd := m.submitComposer("Hello")
	run(t, m, cmd, 0)

	ctrl := m.active()
	require.NotNil(t, ctrl)

	// Only the user message survives; the failure is surfaced.
	require.Len(t, ctrl.messages, 1)
	require.Equal(t, model.RoleUser, ctrl.messages[0].Role)
	require.Contains(t, ctrl.errText, "model overloaded")

	// The failed turn can be retried.
	backend.mu.Lock()
	backend.streamStatus = 0
	backend.streamFrames = []string{
		`{"type":"text-delta","delta":"Recovered"}`,
		`{"type":"finish","finishReason":"stop"}`,
	}
	backend.mu.Unlock()

	_, err := ctrl.regenerate()
	require.NoError(t, err)
	run(t, m, m.startTurn(ctrl, "", false), 0)

	require.Len(t, ctrl.messages, 2)
	require.Equal(t, "Recovered", ctrl.messages[1].Text())
	require.Empty(t, ctrl.errText)
}

func TestServerErrorEventKeepsPartial(t *testing.T) {
	backend := &testBackend{streamFrames: []string{
		`{"type":"text-delta","delta":"Partial answer"}`,
		`{"type":"error","errorText":"upstream timeout"}`,
	}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	_, cmd := m.submitComposer("Hello")
	run(t, m, cmd, 0)

	ctrl := m.active()
	require.NotNil(t, ctrl)

	// Mid-stream server error keeps the partial content and the error.
	require.Len(t, ctrl.messages, 2)
	require.Equal(t, "Partial answer", ctrl.messages[1].Text())
	require.Contains(t, ctrl.errText, "upstream timeout")
}

func TestCloseConversationTearsDownController(t *testing.T) {
	backend := &testBackend{streamFrames: []string{
		`{"type":"text-delta","delta":"Hi"}`,
		`{"type":"finish","finishReason":"stop"}`,
	}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	_, cmd := m.submitComposer("Hello")
	run(t, m, cmd, 0)
	require.NotNil(t, m.active())

	m.closeConversation()

	require.Equal(t, viewHome, m.view)
	require.Empty(t, m.activeID)
	require.Empty(t, m.controllers, "navigating away must release the controller")
}

func TestCycleModelPersists(t *testing.T) {
	backend := &testBackend{}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	run(t, m, loadModelsCmd(m.cache, m.client), 0)

	require.Equal(t, "m-fast", m.currentModel(), "catalog default should seed")

	m.cycleModel()
	require.Equal(t, "m-smart", m.currentModel())
	require.True(t, m.modelSel.HasSelection(), "cycling must persist the pick")
}

func TestCancelThenResubmitKeepsCancelledTurn(t *testing.T) {
	srv := httptest.NewServer((&testBackend{}).handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	ctrl := newController("conv-9")
	m.controllers["conv-9"] = ctrl
	m.activeID = "conv-9"
	m.view = viewConversation

	_, err := ctrl.beginTurn("first question")
	require.NoError(t, err)

	ch := make(chan StreamItem, 4)
	m.Update(StreamStartedMsg{ConversationID: "conv-9", Gen: ctrl.gen, Events: ch})
	m.Update(StreamEventMsg{ConversationID: "conv-9", Events: ch, Event: stream.Event{
		Type: stream.EventTextDelta, Delta: "Partial",
	}})

	ctrl.stopStream()

	// Cancelling commits immediately: the user message and the content
	// that already arrived are final history.
	require.Len(t, ctrl.messages, 2)
	require.Equal(t, "first question", ctrl.messages[0].Text())
	require.Equal(t, "Partial", ctrl.messages[1].Text())
	require.Empty(t, ctrl.errText)

	// Submitting in the window before the dead stream's close message
	// arrives must start cleanly.
	_, err = ctrl.beginTurn("second question")
	require.NoError(t, err)

	m.Update(StreamClosedMsg{ConversationID: "conv-9", Events: ch, Err: context.Canceled})

	require.True(t, ctrl.Streaming(), "stale close must not kill the new turn")
	require.Equal(t, "second question", ctrl.asm.UserMessage().Text())
	require.Len(t, ctrl.messages, 2, "stale close must not rewrite history")
	require.Empty(t, ctrl.errText)
}

func TestStaleStreamStartIgnoredAfterCancel(t *testing.T) {
	srv := httptest.NewServer((&testBackend{}).handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	ctrl := newController("conv-9")
	m.controllers["conv-9"] = ctrl
	m.activeID = "conv-9"
	m.view = viewConversation

	_, err := ctrl.beginTurn("first question")
	require.NoError(t, err)
	staleGen := ctrl.gen

	// Cancel before the stream ever connected.
	ctrl.stopStream()
	_, err = ctrl.beginTurn("second question")
	require.NoError(t, err)

	ch := make(chan StreamItem, 1)
	m.Update(StreamStartedMsg{ConversationID: "conv-9", Gen: staleGen, Events: ch})

	require.Nil(t, ctrl.events, "a stale start must not attach its channel")
}

func TestHandoffModelOverridesSelection(t *testing.T) {
	backend := &testBackend{streamFrames: []string{
		`{"type":"text-delta","delta":"ok"}`,
		`{"type":"finish","finishReason":"stop"}`,
	}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	require.NoError(t, m.handoff.Publish("conv-1", handoff.Payload{
		InitialMessage: "hi",
		Model:          "m-smart",
		WebSearch:      true,
	}))
	require.NotEqual(t, "m-smart", m.currentModel())

	_, cmd := m.openConversation("conv-1")
	run(t, m, cmd, 0)

	// The first turn carries the payload's model choice, not the
	// current selection.
	backend.mu.Lock()
	got := backend.lastTurnModel
	backend.mu.Unlock()
	require.Equal(t, "m-smart", got)
}

func TestTurnTimeoutSurfacesAsMidStreamFailure(t *testing.T) {
	backend := &testBackend{hangStream: true, streamFrames: []string{
		`{"type":"text-delta","delta":"Partial"}`,
	}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	m.cfg.API.TimeoutSecs = 1

	_, cmd := m.submitComposer("Hello")
	run(t, m, cmd, 0)

	ctrl := m.active()
	require.NotNil(t, ctrl)
	require.False(t, ctrl.Streaming(), "hung stream must not spin forever")
	require.Len(t, ctrl.messages, 2)
	require.Equal(t, "Partial", ctrl.messages[1].Text())
	require.Contains(t, ctrl.errText, "deadline")
}

func TestRenameConversation(t *testing.T) {
	backend := &testBackend{title: "First chat", streamFrames: []string{
		`{"type":"text-delta","delta":"Hi"}`,
		`{"type":"finish","finishReason":"stop"}`,
	}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	_, cmd := m.submitComposer("Hello")
	run(t, m, cmd, 0)

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	require.True(t, m.renaming)

	m.input.SetValue("Renamed thread")
	_, renameCmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.renaming)
	m.Update(renameCmd())

	ctrl := m.active()
	require.NotNil(t, ctrl.conv)
	require.Equal(t, "Renamed thread", ctrl.conv.DisplayTitle())

	backend.mu.Lock()
	got := backend.title
	backend.mu.Unlock()
	require.Equal(t, "Renamed thread", got)
}

func TestReasoningThenTextParts(t *testing.T) {
	backend := &testBackend{streamFrames: []string{
		`{"type":"reasoning","delta":"thinking hard"}`,
		`{"type":"text-delta","delta":"Answer"}`,
		`{"type":"source-url","url":"https://example.com/a"}`,
		`{"type":"finish","finishReason":"stop"}`,
	}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	m := newTestModel(t, srv.URL)
	_, cmd := m.submitComposer("Hello")
	run(t, m, cmd, 0)

	ctrl := m.active()
	require.NotNil(t, ctrl)
	require.Len(t, ctrl.messages, 2)

	assistant := ctrl.messages[1]
	require.Len(t, assistant.Parts, 3)
	require.Equal(t, "thinking hard", assistant.Reasoning())
	require.Equal(t, "Answer", assistant.Text())
	require.Equal(t, []string{"https://example.com/a"}, assistant.Sources())
}
