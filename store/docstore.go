package store

import (
	"context"
	"sync"

	"github.com/smallnest/ragpipe"
)

// MemoryDocStore is an in-memory ragpipe.DocStore holding full parent
// documents keyed by ID.
type MemoryDocStore struct {
	mu   sync.RWMutex
	docs map[string]ragpipe.Document
}

var _ ragpipe.DocStore = (*MemoryDocStore)(nil)

// NewMemoryDocStore creates an empty MemoryDocStore
func NewMemoryDocStore() *MemoryDocStore {
	return &MemoryDocStore{
		docs: make(map[string]ragpipe.Document),
	}
}

// Put stores documents by ID, overwriting existing entries
func (s *MemoryDocStore) Put(ctx context.Context, docs []ragpipe.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return nil
}

// Get returns the documents for the given IDs, in ID order, skipping
// IDs with no entry.
func (s *MemoryDocStore) Get(ctx context.Context, ids []string) ([]ragpipe.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []ragpipe.Document
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Delete removes documents by ID
func (s *MemoryDocStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}
