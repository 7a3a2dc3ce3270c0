package retriever

import (
	"context"
	"fmt"

	"github.com/smallnest/ragpipe"
)

// VectorRetriever retrieves documents by vector similarity, optionally
// reselecting with maximal marginal relevance for diversity.
type VectorRetriever struct {
	vectorStore ragpipe.VectorStore
	embedder    ragpipe.Embedder
	config      ragpipe.RetrievalConfig
}

var _ ragpipe.Retriever = (*VectorRetriever)(nil)

// NewVectorRetriever creates a new vector retriever. Zero config fields
// get defaults: K=4, SearchType=similarity, and for MMR FetchK=2*K. A
// nil LambdaMult means 0.5; an explicit 0 maximizes diversity.
func NewVectorRetriever(vectorStore ragpipe.VectorStore, embedder ragpipe.Embedder, config ragpipe.RetrievalConfig) *VectorRetriever {
	if config.K == 0 {
		config.K = 4
	}
	if config.SearchType == "" {
		config.SearchType = ragpipe.SearchTypeSimilarity
	}

	return &VectorRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		config:      config,
	}
}

// Retrieve retrieves documents for the query using the configured defaults
func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]ragpipe.Document, error) {
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

// RetrieveWithConfig retrieves documents with a per-call configuration
func (r *VectorRetriever) RetrieveWithConfig(ctx context.Context, query string, config *ragpipe.RetrievalConfig) ([]ragpipe.SearchResult, error) {
	if config == nil {
		config = &r.config
	}

	queryEmbedding, err := r.embedder.EmbedDocument(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	k := config.K
	if k <= 0 {
		k = 4
	}

	// MMR selects k out of a larger candidate pool.
	fetchK := k
	if config.SearchType == ragpipe.SearchTypeMMR {
		fetchK = config.FetchK
		if fetchK < k {
			fetchK = 2 * k
		}
	}

	var results []ragpipe.SearchResult
	if len(config.Filter) > 0 {
		results, err = r.vectorStore.SearchWithFilter(ctx, queryEmbedding, fetchK, config.Filter)
	} else {
		results, err = r.vectorStore.Search(ctx, queryEmbedding, fetchK)
	}
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	if config.ScoreThreshold > 0 {
		filtered := make([]ragpipe.SearchResult, 0, len(results))
		for _, result := range results {
			if result.Score >= config.ScoreThreshold {
				filtered = append(filtered, result)
			}
		}
		results = filtered
	}

	if config.SearchType == ragpipe.SearchTypeMMR {
		lambda := 0.5
		if config.LambdaMult != nil {
			lambda = *config.LambdaMult
		}
		results = applyMMR(results, k, lambda)
	} else if len(results) > k {
		results = results[:k]
	}

	return results, nil
}
