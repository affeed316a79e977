// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package querycache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/damazzy/mira-chatbot/internal/localstore"
)

// Retry policy for read fetches. Writes are never retried here.
const (
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries = 2

	// retryBaseDelay is the backoff for the first retry; it doubles per
	// attempt and is capped at retryMaxDelay.
	retryBaseDelay = 1 * time.Second
	retryMaxDelay  = 30 * time.Second
)

// Default windows per query namespace, matching the backend's freshness
// characteristics: session metadata changes rarely, message lists often,
// the model catalog almost never.
var (
	SessionsOptions = Options{StaleTime: 30 * time.Second, GCTime: 5 * time.Minute}
	SessionOptions  = Options{StaleTime: 30 * time.Second, GCTime: 5 * time.Minute}
	MessagesOptions = Options{StaleTime: 10 * time.Second, GCTime: 5 * time.Minute}
	ModelsOptions   = Options{StaleTime: 30 * time.Minute, GCTime: 24 * time.Hour}
)

// =============================================================================
// KEYS
// =============================================================================

// Key addresses one cache entry as an ordered tuple of strings, e.g.
// {"sessions", userID}.
type Key []string

// keySep separates key components in the canonical form. Unit separator
// cannot appear in ids or namespaces.
const keySep = "\x1f"

// String returns the canonical form of the key.
func (k Key) String() string {
	return strings.Join(k, keySep)
}

// HasPrefix reports whether k starts with the given prefix tuple.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

// Options control one entry's lifetime.
type Options struct {
	// StaleTime is how long a fetched value is considered fresh. A stale
	// value is still served, but an access triggers a background refresh.
	StaleTime time.Duration

	// GCTime is how long an entry may go unaccessed before Sweep evicts it.
	GCTime time.Duration
}

// =============================================================================
// CACHE
// =============================================================================

// entry is one cached value with its lifetime bookkeeping.
type entry struct {
	key        Key
	value      []byte
	fetchedAt  time.Time
	lastAccess time.Time
	opts       Options
}

// Cache is the process-wide query cache. It is created once at start and
// shared by every view; a mutex guards the map because background
// revalidations complete off the UI event loop.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	// revalidating tracks keys with an in-flight background refresh so
	// repeated stale reads do not stack refreshes.
	revalidating map[string]bool

	// durable is the store for the persisted snapshot; nil disables
	// persistence entirely.
	durable *localstore.Store

	// Logf reports recoverable problems (failed refreshes, bad
	// snapshots). Nil means silent.
	Logf func(format string, args ...any)

	// now and sleep are injection points for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a cache. durable may be nil to disable persistence.
func New(durable *localstore.Store) *Cache {
	return &Cache{
		entries:      make(map[string]*entry),
		revalidating: make(map[string]bool),
		durable:      durable,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// logf reports through the optional hook.
func (c *Cache) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

// =============================================================================
// BASIC OPERATIONS
// =============================================================================

// Get returns the cached value for key, fresh or stale, and whether it
// exists. Reading refreshes the entry's access time for GC purposes.
func (c *Cache) Get(key Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.String()]
	if !ok {
		return nil, false
	}
	e.lastAccess = c.now()
	return e.value, true
}

// Set stores value under key with the given lifetime options.
func (c *Cache) Set(key Key, value []byte, opts Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, value, c.now(), opts)
}

func (c *Cache) setLocked(key Key, value []byte, fetchedAt time.Time, opts Options) {
	now := c.now()
	c.entries[key.String()] = &entry{
		key:        key,
		value:      value,
		fetchedAt:  fetchedAt,
		lastAccess: now,
		opts:       opts,
	}
}

// Invalidate removes every entry whose key starts with prefix.
func (c *Cache) Invalidate(prefix Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ks, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, ks)
		}
	}
}

// Sweep evicts entries unaccessed past their GC window and returns the
// number evicted. Called periodically from the program tick.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for ks, e := range c.entries {
		if e.opts.GCTime > 0 && now.Sub(e.lastAccess) > e.opts.GCTime {
			delete(c.entries, ks)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// =============================================================================
// READ-THROUGH FETCH
// =============================================================================

// FetchFunc loads a value from the remote store.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Fetch returns the value for key, reading through to fn on a miss.
//
// A fresh hit returns immediately. A stale hit returns the cached value
// and kicks off a background revalidation so the next reader sees fresh
// data. A miss fetches synchronously with up to MaxRetries retries and
// exponential backoff; write operations must not go through Fetch.
func (c *Cache) Fetch(ctx context.Context, key Key, opts Options, fn FetchFunc) ([]byte, error) {
	ks := key.String()

	c.mu.Lock()
	e, ok := c.entries[ks]
	if ok {
		e.lastAccess = c.now()
		stale := c.now().Sub(e.fetchedAt) >= opts.StaleTime
		value := e.value
		needsRefresh := stale && !c.revalidating[ks]
		if needsRefresh {
			c.revalidating[ks] = true
		}
		c.mu.Unlock()

		if needsRefresh {
			go c.revalidate(key, opts, fn)
		}
		return value, nil
	}
	c.mu.Unlock()

	value, err := c.fetchWithRetry(ctx, fn)
	if err != nil {
		return nil, err
	}
	c.Set(key, value, opts)
	return value, nil
}

// revalidate refreshes one stale entry in the background. Failures keep
// the stale value; the entry stays stale and the next access retries.
func (c *Cache) revalidate(key Key, opts Options, fn FetchFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), retryMaxDelay)
	defer cancel()

	value, err := c.fetchWithRetry(ctx, fn)

	c.mu.Lock()
	delete(c.revalidating, key.String())
	if err == nil {
		c.setLocked(key, value, c.now(), opts)
	}
	c.mu.Unlock()

	if err != nil {
		c.logf("cache: background refresh of %v failed: %v", key, err)
	}
}

// fetchWithRetry runs fn with the read retry policy: MaxRetries retries,
// delay doubling from retryBaseDelay, capped at retryMaxDelay.
func (c *Cache) fetchWithRetry(ctx context.Context, fn FetchFunc) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoff(attempt)); err != nil {
				return nil, err
			}
		}
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// backoff returns the delay before the given retry attempt (1-based).
func backoff(attempt int) time.Duration {
	d := retryBaseDelay << (attempt - 1)
	if d > retryMaxDelay {
		return retryMaxDelay
	}
	return d
}

// =============================================================================
// JSON HELPERS
// =============================================================================

// FetchJSON reads through the cache decoding the value into T.
func FetchJSON[T any](ctx context.Context, c *Cache, key Key, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	raw, err := c.Fetch(ctx, key, opts, func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, err
	}
	return out, nil
}
