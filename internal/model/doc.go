// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// and message parts.
//
// A Message is an ordered sequence of typed Parts (plain text, reasoning
// trace, cited source). An assistant message under construction grows its
// last part as stream increments arrive; a part boundary is created only
// when the incoming increment's kind differs from the open part's kind.
package model
