package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is an in-process Cache for tests and single-binary dev runs.
// Entries are lazily evicted on read.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// Make sure we conform to Cache interface
var _ Cache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) GetJob(_ context.Context, id uuid.UUID) (*JobState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[jobKey(id)]
	if !found {
		return nil, ErrMiss
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, jobKey(id))
		return nil, ErrMiss
	}

	var state JobState
	if err := json.Unmarshal(entry.data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *MemoryCache) SetJob(_ context.Context, state *JobState, ttl time.Duration) error {
	state.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[jobKey(state.ID)] = memoryEntry{data: data, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) DeleteJob(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, jobKey(id))
	return nil
}

func (c *MemoryCache) Ping(_ context.Context) error {
	return nil
}
