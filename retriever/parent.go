package retriever

import (
	"context"
	"fmt"

	"github.com/smallnest/ragpipe"
)

// ParentDocumentRetriever searches over small chunks for precision but
// returns the full parent documents they came from. Chunks carry a
// parent_id metadata entry pointing into the doc store; each parent is
// returned once, scored by its best-matching chunk.
type ParentDocumentRetriever struct {
	base     ragpipe.Retriever
	docStore ragpipe.DocStore
}

var _ ragpipe.Retriever = (*ParentDocumentRetriever)(nil)

// NewParentDocumentRetriever creates a parent-document retriever over
// the chunk-level base retriever and the parent doc store
func NewParentDocumentRetriever(base ragpipe.Retriever, docStore ragpipe.DocStore) *ParentDocumentRetriever {
	return &ParentDocumentRetriever{
		base:     base,
		docStore: docStore,
	}
}

// Retrieve returns the parent documents for the query's best chunks
func (r *ParentDocumentRetriever) Retrieve(ctx context.Context, query string) ([]ragpipe.Document, error) {
	results, err := r.RetrieveWithConfig(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]ragpipe.Document, len(results))
	for i, result := range results {
		docs[i] = result.Document
	}
	return docs, nil
}

// RetrieveWithConfig retrieves with a per-call configuration
func (r *ParentDocumentRetriever) RetrieveWithConfig(ctx context.Context, query string, config *ragpipe.RetrievalConfig) ([]ragpipe.SearchResult, error) {
	chunkResults, err := r.base.RetrieveWithConfig(ctx, query, config)
	if err != nil {
		return nil, err
	}

	// Order parents by their best chunk; chunkResults is already ranked.
	var parentIDs []string
	bestScore := make(map[string]float64)
	for _, result := range chunkResults {
		parentID := parentIDOf(result.Document)
		if parentID == "" {
			continue
		}
		if _, seen := bestScore[parentID]; !seen {
			parentIDs = append(parentIDs, parentID)
			bestScore[parentID] = result.Score
		}
	}

	if len(parentIDs) == 0 {
		return nil, nil
	}

	parents, err := r.docStore.Get(ctx, parentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parent documents: %w", err)
	}

	results := make([]ragpipe.SearchResult, len(parents))
	for i, parent := range parents {
		results[i] = ragpipe.SearchResult{
			Document: parent,
			Score:    bestScore[parent.ID],
		}
	}
	return results, nil
}

// parentIDOf reads the chunk's parent_id metadata, falling back to the
// document's own ID for unchunked documents.
func parentIDOf(doc ragpipe.Document) string {
	if doc.Metadata != nil {
		if parentID, ok := doc.Metadata["parent_id"].(string); ok && parentID != "" {
			return parentID
		}
	}
	return doc.ID
}
