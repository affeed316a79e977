// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"testing"

	"github.com/damazzy/mira-chatbot/internal/model"
	"github.com/damazzy/mira-chatbot/internal/stream"
)

func TestController_BeginTurnValidates(t *testing.T) {
	ctrl := newController("conv-1")

	if _, err := ctrl.beginTurn("   "); err != stream.ErrEmptyMessage {
		t.Errorf("beginTurn(blank) = %v, want ErrEmptyMessage", err)
	}

	user, err := ctrl.beginTurn("hello")
	if err != nil {
		t.Fatalf("beginTurn failed: %v", err)
	}
	if user.SessionID != "conv-1" {
		t.Errorf("SessionID = %q", user.SessionID)
	}
	if ctrl.phase != PhaseActive {
		t.Errorf("phase = %v, want active", ctrl.phase)
	}

	if _, err := ctrl.beginTurn("again"); err != stream.ErrTurnActive {
		t.Errorf("second beginTurn = %v, want ErrTurnActive", err)
	}
}

func TestController_CommitMovesTurnToHistory(t *testing.T) {
	ctrl := newController("conv-1")
	if _, err := ctrl.beginTurn("hello"); err != nil {
		t.Fatalf("beginTurn failed: %v", err)
	}
	ctrl.asm.Apply(stream.Event{Type: stream.EventTextDelta, Delta: "hi there"})
	ctrl.asm.Apply(stream.Event{Type: stream.EventFinish, FinishReason: "stop"})

	ctrl.commitTurn()

	if len(ctrl.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(ctrl.messages))
	}
	if ctrl.messages[0].Role != model.RoleUser || ctrl.messages[1].Role != model.RoleAssistant {
		t.Error("history ordering wrong")
	}
	if ctrl.messages[1].Text() != "hi there" {
		t.Errorf("assistant text = %q", ctrl.messages[1].Text())
	}
	if ctrl.Streaming() {
		t.Error("controller still streaming after commit")
	}
}

func TestController_FailedTurnKeepsUserOnly(t *testing.T) {
	ctrl := newController("conv-1")
	if _, err := ctrl.beginTurn("hello"); err != nil {
		t.Fatalf("beginTurn failed: %v", err)
	}
	// Failure before any bytes arrived.
	ctrl.asm.Fail(errors.New("connect refused"))
	ctrl.commitTurn()

	if len(ctrl.messages) != 1 {
		t.Fatalf("messages = %d, want only the user message", len(ctrl.messages))
	}
	if ctrl.errText == "" {
		t.Error("errText should carry the failure")
	}
}

func TestController_RegenerateDropsAssistant(t *testing.T) {
	ctrl := newController("conv-1")
	if _, err := ctrl.beginTurn("hello"); err != nil {
		t.Fatalf("beginTurn failed: %v", err)
	}
	ctrl.asm.Apply(stream.Event{Type: stream.EventTextDelta, Delta: "first answer"})
	ctrl.asm.Apply(stream.Event{Type: stream.EventFinish})
	ctrl.commitTurn()

	user, err := ctrl.regenerate()
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if user.Text() != "hello" {
		t.Errorf("regenerated user text = %q", user.Text())
	}
	if len(ctrl.messages) != 0 {
		t.Errorf("messages = %d, want exchange rewound", len(ctrl.messages))
	}
	if !ctrl.Streaming() {
		t.Error("regenerate should leave a turn in flight")
	}
}

func TestController_RegenerateAfterFailure(t *testing.T) {
	ctrl := newController("conv-1")
	if _, err := ctrl.beginTurn("hello"); err != nil {
		t.Fatalf("beginTurn failed: %v", err)
	}
	ctrl.asm.Fail(errors.New("boom"))
	ctrl.commitTurn()

	// History ends with the unanswered user message; retry resubmits it.
	user, err := ctrl.regenerate()
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if user.Text() != "hello" {
		t.Errorf("user text = %q", user.Text())
	}
}

func TestController_RegenerateWithNothing(t *testing.T) {
	ctrl := newController("conv-1")
	if _, err := ctrl.regenerate(); err != stream.ErrNoTurn {
		t.Errorf("regenerate = %v, want ErrNoTurn", err)
	}
}

func TestController_LastAssistantTextPrefersInFlight(t *testing.T) {
	ctrl := newController("conv-1")
	ctrl.setHistory([]*model.Message{
		model.NewUserMessage("q"),
		{Role: model.RoleAssistant, Parts: []model.Part{{Kind: model.PartText, Content: "old"}}},
	})

	if got := ctrl.lastAssistantText(); got != "old" {
		t.Errorf("lastAssistantText = %q", got)
	}

	if _, err := ctrl.beginTurn("next"); err != nil {
		t.Fatalf("beginTurn failed: %v", err)
	}
	ctrl.asm.Apply(stream.Event{Type: stream.EventTextDelta, Delta: "new"})
	if got := ctrl.lastAssistantText(); got != "new" {
		t.Errorf("lastAssistantText = %q, want in-flight text", got)
	}
}

func TestController_SetHistoryPhases(t *testing.T) {
	ctrl := newController("conv-1")
	if ctrl.Phase() != PhaseLoading {
		t.Errorf("initial phase = %v", ctrl.Phase())
	}

	// Empty history alone is not enough; session metadata must also
	// resolve before the view settles.
	ctrl.setHistory(nil)
	if ctrl.Phase() != PhaseLoading {
		t.Errorf("phase after history only = %v, want still loading", ctrl.Phase())
	}
	ctrl.setConversation(&model.Conversation{ID: "conv-1"})
	if ctrl.Phase() != PhaseEmpty {
		t.Errorf("phase after both fetches = %v, want empty", ctrl.Phase())
	}

	ctrl = newController("conv-2")
	ctrl.setConversation(&model.Conversation{ID: "conv-2"})
	ctrl.setHistory([]*model.Message{model.NewUserMessage("q")})
	if ctrl.Phase() != PhaseActive {
		t.Errorf("non-empty history phase = %v, want active", ctrl.Phase())
	}
}

func TestController_HistorySettlesActiveBeforeMetadata(t *testing.T) {
	ctrl := newController("conv-1")
	ctrl.setHistory([]*model.Message{model.NewUserMessage("q")})
	if ctrl.Phase() != PhaseActive {
		t.Errorf("phase = %v, want active without waiting for metadata", ctrl.Phase())
	}
}
