// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package handoff

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/damazzy/mira-chatbot/internal/localstore"
)

// MaxAge is how long a published payload stays consumable.
const MaxAge = 5 * time.Minute

const keyPrefix = "chat-initial-"

// Payload is the first turn of a freshly created conversation.
type Payload struct {
	InitialMessage string    `json:"initialMessage"`
	Model          string    `json:"model"`
	WebSearch      bool      `json:"webSearch"`
	Timestamp      time.Time `json:"timestamp"`
}

// Channel publishes and consumes first-turn payloads over the scoped
// store.
type Channel struct {
	store *localstore.Store

	// now is replaceable in tests.
	now func() time.Time
}

// NewChannel returns a channel backed by store, which should be the
// scoped store so payloads die with the process.
func NewChannel(store *localstore.Store) *Channel {
	return &Channel{store: store, now: time.Now}
}

func key(conversationID string) string {
	return keyPrefix + conversationID
}

// Publish stores payload for conversationID, stamping it with the
// current time. A second publish for the same conversation replaces the
// first.
func (c *Channel) Publish(conversationID string, payload Payload) error {
	payload.Timestamp = c.now()
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("handoff publish: %w", err)
	}
	if err := c.store.Set(key(conversationID), string(data)); err != nil {
		return fmt.Errorf("handoff publish: %w", err)
	}
	return nil
}

// Consume reads and deletes the payload for conversationID. The delete
// is unconditional: a payload is read at most once, even when it turns
// out to be expired or malformed. ok is false when there is nothing
// usable to consume.
func (c *Channel) Consume(conversationID string) (Payload, bool, error) {
	k := key(conversationID)
	raw, found, err := c.store.Get(k)
	if err != nil {
		return Payload{}, false, fmt.Errorf("handoff consume: %w", err)
	}
	if !found {
		return Payload{}, false, nil
	}
	if err := c.store.Delete(k); err != nil {
		return Payload{}, false, fmt.Errorf("handoff consume: %w", err)
	}

	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// Already deleted; treat as absent.
		return Payload{}, false, nil
	}
	if c.now().Sub(payload.Timestamp) >= MaxAge {
		return Payload{}, false, nil
	}
	return payload, true, nil
}
