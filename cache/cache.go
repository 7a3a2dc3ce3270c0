// Package cache provides embedding caches keyed by content hash, with
// in-memory, Redis and SQLite backends.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no entry.
var ErrNotFound = errors.New("cache: key not found")

// Cache stores embedding vectors keyed by content hash so repeated
// indexing runs skip already-embedded text.
type Cache interface {
	// Get returns the cached vector for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]float32, error)

	// Set stores the vector under key.
	Set(ctx context.Context, key string, embedding []float32) error

	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Key derives a stable cache key from the provider, model and text. Two
// different models never share an entry even for identical text.
func Key(provider, model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s:%s", provider, model, hex.EncodeToString(sum[:]))
}
