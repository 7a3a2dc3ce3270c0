package retriever

import (
	"context"
	"sort"
	"strings"

	"github.com/smallnest/ragpipe"
)

// KeywordReranker rescores results by query term frequency blended with
// the original retrieval score. It is cheap and model-free, useful as a
// second stage over a generous candidate pool.
type KeywordReranker struct {
	topN int
}

var _ ragpipe.Reranker = (*KeywordReranker)(nil)

// NewKeywordReranker creates a reranker returning at most topN results.
// Non-positive topN keeps every result.
func NewKeywordReranker(topN int) *KeywordReranker {
	return &KeywordReranker{topN: topN}
}

// Rerank reorders results by blended relevance to the query
func (r *KeywordReranker) Rerank(ctx context.Context, query string, results []ragpipe.SearchResult) ([]ragpipe.SearchResult, error) {
	queryTerms := strings.Fields(strings.ToLower(query))

	reranked := make([]ragpipe.SearchResult, len(results))
	for i, result := range results {
		content := strings.ToLower(result.Document.Content)

		var termScore float64
		for _, term := range queryTerms {
			termScore += float64(strings.Count(content, term))
		}
		if len(content) > 0 {
			termScore = termScore / float64(len(content)) * 1000
		}

		reranked[i] = ragpipe.SearchResult{
			Document: result.Document,
			Score:    0.7*result.Score + 0.3*termScore,
			Metadata: result.Metadata,
		}
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})

	if r.topN > 0 && len(reranked) > r.topN {
		reranked = reranked[:r.topN]
	}
	return reranked, nil
}

// RerankingRetriever runs a base retriever and pipes its results
// through a reranker.
type RerankingRetriever struct {
	base     ragpipe.Retriever
	reranker ragpipe.Reranker
}

var _ ragpipe.Retriever = (*RerankingRetriever)(nil)

// NewRerankingRetriever wraps base with the reranker
func NewRerankingRetriever(base ragpipe.Retriever, reranker ragpipe.Reranker) *RerankingRetriever {
	return &RerankingRetriever{
		base:     base,
		reranker: reranker,
	}
}

// Retrieve retrieves and reranks documents for the query
func (r *RerankingRetriever) Retrieve(ctx context.Context, query string) ([]ragpipe.Document, error) {
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

// RetrieveWithConfig retrieves with a per-call configuration and reranks
func (r *RerankingRetriever) RetrieveWithConfig(ctx context.Context, query string, config *ragpipe.RetrievalConfig) ([]ragpipe.SearchResult, error) {
	results, err := r.base.RetrieveWithConfig(ctx, query, config)
	if err != nil {
		return nil, err
	}
	return r.reranker.Rerank(ctx, query, results)
}
