// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package querycache

import (
	"encoding/json"
	"time"
)

// Persistence constants.
const (
	// PersistKey is the durable-store key of the serialized snapshot.
	PersistKey = "MIRA_CHATBOT_CACHE"

	// PersistNamespace is the only key namespace that is persisted.
	PersistNamespace = "models"

	// MaxSnapshotAge is the absolute wall-clock expiry of a snapshot,
	// independent of per-entry staleness.
	MaxSnapshotAge = 24 * time.Hour
)

// =============================================================================
// SNAPSHOT SHAPE
// =============================================================================

// snapshot mirrors the persisted client-state layout:
// {clientState: {queries: [...]}, timestamp}.
type snapshot struct {
	ClientState clientState `json:"clientState"`
	Timestamp   int64       `json:"timestamp"` // unix millis
}

type clientState struct {
	Queries []persistedQuery `json:"queries"`
}

type persistedQuery struct {
	QueryKey []string       `json:"queryKey"`
	State    persistedState `json:"state"`
}

type persistedState struct {
	Data          json.RawMessage `json:"data"`
	DataUpdatedAt int64           `json:"dataUpdatedAt"` // unix millis
}

// =============================================================================
// PERSIST / REHYDRATE
// =============================================================================

// Persist serializes every entry in the persisted namespace to the durable
// store. A cache with no durable store persists nothing.
func (c *Cache) Persist() error {
	if c.durable == nil {
		return nil
	}

	c.mu.Lock()
	snap := snapshot{Timestamp: c.now().UnixMilli()}
	for _, e := range c.entries {
		if !e.key.HasPrefix(Key{PersistNamespace}) {
			continue
		}
		snap.ClientState.Queries = append(snap.ClientState.Queries, persistedQuery{
			QueryKey: append([]string(nil), e.key...),
			State: persistedState{
				Data:          append(json.RawMessage(nil), e.value...),
				DataUpdatedAt: e.fetchedAt.UnixMilli(),
			},
		})
	}
	c.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.durable.Set(PersistKey, string(data))
}

// Rehydrate loads the persisted snapshot into memory. Runs synchronously
// at start, before any dependent view renders.
//
// Snapshots older than MaxSnapshotAge are discarded. A malformed snapshot
// is treated as absence: deleted, logged, never fatal. Rehydrated entries
// keep their original fetch time, so an instantly-loaded catalog is never
// treated as fresher than its staleness window.
func (c *Cache) Rehydrate(opts Options) error {
	if c.durable == nil {
		return nil
	}

	raw, ok, err := c.durable.Get(PersistKey)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		c.logf("cache: discarding malformed snapshot: %v", err)
		return c.durable.Delete(PersistKey)
	}

	if c.now().Sub(time.UnixMilli(snap.Timestamp)) > MaxSnapshotAge {
		return c.durable.Delete(PersistKey)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range snap.ClientState.Queries {
		key := Key(q.QueryKey)
		if !key.HasPrefix(Key{PersistNamespace}) {
			continue
		}
		c.setLocked(key, []byte(q.State.Data), time.UnixMilli(q.State.DataUpdatedAt), opts)
	}
	return nil
}
