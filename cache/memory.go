package cache

import (
	"context"
	"sync"
)

// MemoryCache is an in-process Cache backed by a map. It is safe for
// concurrent use and keeps entries until deleted or the process exits.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]float32
}

var _ Cache = (*MemoryCache)(nil)

// NewMemoryCache creates an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string][]float32),
	}
}

// Get returns the cached vector for key
func (c *MemoryCache) Get(ctx context.Context, key string) ([]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	embedding, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]float32, len(embedding))
	copy(out, embedding)
	return out, nil
}

// Set stores the vector under key
func (c *MemoryCache) Set(ctx context.Context, key string, embedding []float32) error {
	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = stored
	return nil
}

// Delete removes the entry for key
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

// Len reports the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close is a no-op for the in-memory cache
func (c *MemoryCache) Close() error {
	return nil
}
