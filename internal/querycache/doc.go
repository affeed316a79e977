// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package querycache is the key-addressed cache of remote-fetch results.
//
// Each entry carries a staleness window (after which an access triggers a
// background revalidation) and a garbage-collection window (after which an
// untouched entry is evicted from memory). Entries under the model-catalog
// namespace are additionally serialized to the durable store and
// rehydrated on start when the snapshot is younger than 24 hours; all
// other entries are memory-only and rebuilt from the gateway each run.
package querycache
