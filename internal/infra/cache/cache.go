// Package cache provides fast reads of forager snapshots and the
// latest presence summary. The cache is never the source of truth;
// actors are. A miss just means a slower read through the engine.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// KV is the key-value store interface the caches run on. The default
// is the in-process MemoryKV; a Redis-backed client satisfies the same
// interface when the colony outgrows one process.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// MemoryKV is a mutex-guarded in-process KV with per-key expiry.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryKV creates an empty in-process store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]memoryEntry)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return "", ErrMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return "", ErrMiss
	}
	return entry.value, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	entry := memoryEntry{value: value}
	if expiration > 0 {
		entry.expiresAt = time.Now().Add(expiration)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

// SnapshotCache provides fast access to serialized forager snapshots.
type SnapshotCache struct {
	client     KV
	expiration time.Duration
}

// NewSnapshotCache creates a snapshot cache over the given store.
func NewSnapshotCache(client KV) *SnapshotCache {
	return &SnapshotCache{
		client:     client,
		expiration: 15 * time.Minute,
	}
}

// Set caches one forager's snapshot under its colony.
func (c *SnapshotCache) Set(ctx context.Context, colonyID, foragerID string, snapshot interface{}) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return c.client.Set(ctx, c.foragerKey(colonyID, foragerID), string(data), c.expiration)
}

// Get loads a cached snapshot into out. Returns ErrMiss when absent.
func (c *SnapshotCache) Get(ctx context.Context, colonyID, foragerID string, out interface{}) error {
	data, err := c.client.Get(ctx, c.foragerKey(colonyID, foragerID))
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return nil
}

// Invalidate drops one forager's cached snapshot.
func (c *SnapshotCache) Invalidate(ctx context.Context, colonyID, foragerID string) error {
	return c.client.Del(ctx, c.foragerKey(colonyID, foragerID))
}

func (c *SnapshotCache) foragerKey(colonyID, foragerID string) string {
	return fmt.Sprintf("colony:%s:forager:%s", colonyID, foragerID)
}

// SummaryCache holds the latest presence summary so polling endpoints
// do not hit the aggregator for every request.
type SummaryCache struct {
	client KV
}

// NewSummaryCache creates a summary cache over the given store.
func NewSummaryCache(client KV) *SummaryCache {
	return &SummaryCache{client: client}
}

// Set stores the latest summary. A short expiry keeps a stalled
// broadcaster from serving ancient data forever.
func (c *SummaryCache) Set(ctx context.Context, colonyID string, summary interface{}) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	return c.client.Set(ctx, c.summaryKey(colonyID), string(data), time.Minute)
}

// Get loads the latest summary into out. Returns ErrMiss when absent.
func (c *SummaryCache) Get(ctx context.Context, colonyID string, out interface{}) error {
	data, err := c.client.Get(ctx, c.summaryKey(colonyID))
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), out)
}

func (c *SummaryCache) summaryKey(colonyID string) string {
	return fmt.Sprintf("colony:%s:presence", colonyID)
}
