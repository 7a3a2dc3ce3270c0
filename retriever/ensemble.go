package retriever

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/smallnest/ragpipe"
)

// rrfConstant dampens the influence of high ranks in reciprocal rank
// fusion. 60 is the value from the original RRF paper.
const rrfConstant = 60

// EnsembleRetriever fuses the rankings of several retrievers with
// weighted reciprocal rank fusion. A document appearing in multiple
// rankings accumulates 1/(60+rank) per appearance, scaled by that
// retriever's weight. Duplicates are detected by ID, falling back to a
// content hash for documents without one.
type EnsembleRetriever struct {
	retrievers []ragpipe.Retriever
	weights    []float64
	k          int
}

var _ ragpipe.Retriever = (*EnsembleRetriever)(nil)

// NewEnsembleRetriever creates an ensemble over the given retrievers.
// Weights align with retrievers by index; missing weights default to 1.
func NewEnsembleRetriever(retrievers []ragpipe.Retriever, weights []float64, k int) *EnsembleRetriever {
	normalized := make([]float64, len(retrievers))
	for i := range normalized {
		if i < len(weights) && weights[i] > 0 {
			normalized[i] = weights[i]
		} else {
			normalized[i] = 1.0
		}
	}

	if k <= 0 {
		k = 4
	}

	return &EnsembleRetriever{
		retrievers: retrievers,
		weights:    normalized,
		k:          k,
	}
}

// Retrieve retrieves the fused top documents for the query
func (r *EnsembleRetriever) Retrieve(ctx context.Context, query string) ([]ragpipe.Document, error) {
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

// RetrieveWithConfig retrieves with a per-call configuration. Each
// member retriever receives the same configuration; fusion itself only
// honors K.
func (r *EnsembleRetriever) RetrieveWithConfig(ctx context.Context, query string, config *ragpipe.RetrievalConfig) ([]ragpipe.SearchResult, error) {
	k := r.k
	if config != nil && config.K > 0 {
		k = config.K
	}

	type fused struct {
		result ragpipe.SearchResult
		score  float64
		order  int
	}
	byKey := make(map[string]*fused)
	var keys []string

	for i, member := range r.retrievers {
		results, err := member.RetrieveWithConfig(ctx, query, config)
		if err != nil {
			return nil, err
		}

		for rank, result := range results {
			key := dedupKey(result.Document)
			contribution := r.weights[i] / float64(rrfConstant+rank+1)

			if entry, ok := byKey[key]; ok {
				entry.score += contribution
				continue
			}
			byKey[key] = &fused{
				result: result,
				score:  contribution,
				order:  len(keys),
			}
			keys = append(keys, key)
		}
	}

	entries := make([]*fused, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, byKey[key])
	}

	// Stable on first-seen order for equal fused scores.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})

	if k > len(entries) {
		k = len(entries)
	}

	results := make([]ragpipe.SearchResult, k)
	for i := 0; i < k; i++ {
		results[i] = ragpipe.SearchResult{
			Document: entries[i].result.Document,
			Score:    entries[i].score,
			Metadata: entries[i].result.Metadata,
		}
	}
	return results, nil
}

// dedupKey identifies a document across retrievers: the ID when
// present, otherwise a hash of the content.
func dedupKey(doc ragpipe.Document) string {
	if doc.ID != "" {
		return doc.ID
	}
	sum := sha256.Sum256([]byte(doc.Content))
	return hex.EncodeToString(sum[:])
}
