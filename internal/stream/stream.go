// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/damazzy/mira-chatbot/internal/api"
)

// =============================================================================
// STREAM
// =============================================================================

// Stream is one open turn response being consumed incrementally.
type Stream struct {
	resp *http.Response
	sse  *SSEReader
}

// Open posts the turn request and returns the live stream. A transport
// failure or non-2xx response surfaces here, before any bytes arrive.
func Open(ctx context.Context, client *api.Client, req api.TurnRequest) (*Stream, error) {
	resp, err := client.StreamTurn(ctx, req)
	if err != nil {
		return nil, err
	}
	return &Stream{
		resp: resp,
		sse:  NewSSEReader(resp.Body),
	}, nil
}

// Next returns the next decoded event in arrival order. Malformed frames
// are skipped rather than ending the stream. Returns io.EOF after the
// terminating sentinel or when the connection closes cleanly.
func (s *Stream) Next() (Event, error) {
	for {
		_, data, err := s.sse.ReadEvent()
		if err != nil {
			return Event{}, err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			return Event{}, io.EOF
		}

		ev, err := ParseEvent(data)
		if err != nil {
			// Skip malformed frames
			continue
		}
		return ev, nil
	}
}

// Close releases the underlying connection. Safe to call more than once.
func (s *Stream) Close() error {
	if s.resp == nil {
		return nil
	}
	err := s.resp.Body.Close()
	s.resp = nil
	return err
}
