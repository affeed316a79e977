// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"

	"github.com/damazzy/mira-chatbot/internal/model"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType identifies the kind of a stream increment.
type EventType string

const (
	// EventTextDelta appends text to the open text part.
	EventTextDelta EventType = "text-delta"

	// EventReasoningDelta appends text to the open reasoning part.
	EventReasoningDelta EventType = "reasoning-delta"

	// EventSourceURL appends a cited source part.
	EventSourceURL EventType = "source-url"

	// EventFinish is the terminal frame carrying finish reason and usage.
	EventFinish EventType = "finish"

	// EventError is a terminal error frame from the server.
	EventError EventType = "error"

	// EventUnknown is any frame type this client does not understand.
	// Unknown frames are a recoverable no-op, never a failure.
	EventUnknown EventType = ""
)

// Event is one decoded increment of the turn response stream.
type Event struct {
	Type EventType

	// Delta is the text payload for text-delta and reasoning-delta.
	Delta string

	// URL is the cited source for source-url.
	URL string

	// FinishReason and Usage are set on finish frames.
	FinishReason string
	Usage        model.Usage

	// Message is the server's error description on error frames.
	Message string
}

// wireEvent is the JSON shape of one data frame.
type wireEvent struct {
	Type         string `json:"type"`
	Delta        string `json:"delta"`
	Text         string `json:"text"`
	URL          string `json:"url"`
	FinishReason string `json:"finishReason"`
	Usage        struct {
		InputTokens  int `json:"inputTokens"`
		OutputTokens int `json:"outputTokens"`
		TotalTokens  int `json:"totalTokens"`
	} `json:"usage"`
	ErrorText string `json:"errorText"`
}

// ParseEvent decodes one SSE data frame into an Event. Malformed JSON is
// an error; a well-formed frame with an unrecognized type decodes to
// EventUnknown so callers can skip it.
func ParseEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return Event{}, err
	}

	delta := w.Delta
	if delta == "" {
		delta = w.Text
	}

	switch w.Type {
	case "text-delta":
		return Event{Type: EventTextDelta, Delta: delta}, nil
	case "reasoning-delta", "reasoning":
		return Event{Type: EventReasoningDelta, Delta: delta}, nil
	case "source-url":
		return Event{Type: EventSourceURL, URL: w.URL}, nil
	case "finish":
		return Event{
			Type:         EventFinish,
			FinishReason: w.FinishReason,
			Usage: model.Usage{
				InputTokens:  w.Usage.InputTokens,
				OutputTokens: w.Usage.OutputTokens,
				TotalTokens:  w.Usage.TotalTokens,
			},
		}, nil
	case "error":
		return Event{Type: EventError, Message: w.ErrorText}, nil
	default:
		return Event{Type: EventUnknown}, nil
	}
}
