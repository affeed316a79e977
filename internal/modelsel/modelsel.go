// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modelsel remembers which model the user picked across runs.
//
// The selection lives in the durable store under a single key. When no
// selection has ever been made, the catalog's default model (seeded
// once it has been fetched) applies, and before even that is known a
// hard-coded fallback keeps the picker usable.
package modelsel

import (
	"fmt"

	"github.com/damazzy/mira-chatbot/internal/localstore"
)

// StoreKey is where the explicit selection is kept.
const StoreKey = "mira-selected-model"

// FallbackModel applies before any catalog has been fetched and before
// the user has ever picked a model.
const FallbackModel = "gpt-4o-mini"

// State tracks the current model selection.
type State struct {
	store *localstore.Store

	// seededDefault is the catalog's default model, set once the model
	// list has been fetched. Never written to disk.
	seededDefault string
}

// NewState returns selection state over the durable store.
func NewState(store *localstore.Store) *State {
	return &State{store: store}
}

// Current returns the model to use: the persisted selection if there is
// one, else the seeded catalog default, else the fallback.
func (s *State) Current() string {
	if v, ok, err := s.store.Get(StoreKey); err == nil && ok && v != "" {
		return v
	}
	if s.seededDefault != "" {
		return s.seededDefault
	}
	return FallbackModel
}

// Select persists model as the user's explicit choice. The write is
// synchronous; once Select returns the choice survives a restart.
func (s *State) Select(model string) error {
	if err := s.store.Set(StoreKey, model); err != nil {
		return fmt.Errorf("modelsel select: %w", err)
	}
	return nil
}

// SeedDefault records the catalog's default model. It never overrides
// an explicit selection; it only fills the gap before one exists.
func (s *State) SeedDefault(model string) {
	s.seededDefault = model
}

// HasSelection reports whether the user has ever explicitly picked a
// model.
func (s *State) HasSelection() bool {
	_, ok, err := s.store.Get(StoreKey)
	return err == nil && ok
}
