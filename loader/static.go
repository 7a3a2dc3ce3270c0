package loader

import (
	"context"
	"maps"

	"github.com/google/uuid"

	"github.com/smallnest/ragpipe"
)

// StaticLoader serves a fixed in-memory document list. Useful for
// tests and for feeding already-materialized documents into an Indexer.
type StaticLoader struct {
	Documents []ragpipe.Document
}

var _ ragpipe.DocumentLoader = (*StaticLoader)(nil)

// NewStaticLoader creates a new StaticLoader. Documents without an ID
// get a generated one, so downstream stores can always key by ID.
func NewStaticLoader(documents []ragpipe.Document) *StaticLoader {
	docs := make([]ragpipe.Document, len(documents))
	copy(docs, documents)
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
	}
	return &StaticLoader{
		Documents: docs,
	}
}

// Load returns the static list of documents
func (l *StaticLoader) Load(ctx context.Context) ([]ragpipe.Document, error) {
	return l.Documents, nil
}

// LoadWithMetadata returns the static list with additional metadata
func (l *StaticLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]ragpipe.Document, error) {
	if metadata == nil {
		return l.Documents, nil
	}

	docs := make([]ragpipe.Document, len(l.Documents))
	for i, doc := range l.Documents {
		newDoc := doc
		newDoc.Metadata = make(map[string]any)
		maps.Copy(newDoc.Metadata, doc.Metadata)
		maps.Copy(newDoc.Metadata, metadata)
		docs[i] = newDoc
	}

	return docs, nil
}
