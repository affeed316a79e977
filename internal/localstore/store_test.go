// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package localstore

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mira.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func TestStore_SetGetDelete(t *testing.T) {
	db, _ := openTestDB(t)
	kv := db.Durable()

	if err := kv.Set("k", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set("k", "v2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	value, ok, err := kv.Get("k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || value != "v2" {
		t.Errorf("Get = (%q, %v), want (v2, true)", value, ok)
	}

	if err := kv.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := kv.Get("k"); ok {
		t.Error("key should be gone after Delete")
	}

	// Deleting a missing key is fine.
	if err := kv.Delete("nope"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestDurable_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mira.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Durable().Set("model", "m1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	value, ok, err := db.Durable().Get("model")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || value != "m1" {
		t.Errorf("Get = (%q, %v), want (m1, true)", value, ok)
	}
}

func TestScoped_WipedOnOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mira.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Scoped().Set("handoff", "payload"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	if _, ok, _ := db.Scoped().Get("handoff"); ok {
		t.Error("scoped store should be wiped on reopen")
	}
}

func TestClosedDB(t *testing.T) {
	db, _ := openTestDB(t)
	kv := db.Durable()
	db.Close()

	if err := kv.Set("k", "v"); err != ErrClosed {
		t.Errorf("Set on closed db = %v, want ErrClosed", err)
	}
	if _, _, err := kv.Get("k"); err != ErrClosed {
		t.Errorf("Get on closed db = %v, want ErrClosed", err)
	}
}
