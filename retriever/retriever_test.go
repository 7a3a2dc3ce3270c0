package retriever

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/ragpipe"
	"github.com/smallnest/ragpipe/embedder"
	"github.com/smallnest/ragpipe/store"
)

func seededStore(t *testing.T, emb ragpipe.Embedder, docs []ragpipe.Document) *store.MemoryVectorStore {
	t.Helper()
	s := store.NewMemoryVectorStore(emb)
	require.NoError(t, s.Add(context.Background(), docs))
	return s
}

func TestVectorRetriever(t *testing.T) {
	ctx := context.Background()
	emb := embedder.NewMockEmbedder(32)

	docs := []ragpipe.Document{
		{ID: "paris", Content: "Paris is the capital of France"},
		{ID: "tokyo", Content: "Tokyo is the capital of Japan"},
		{ID: "gopher", Content: "gophers dig extensive burrows"},
	}
	s := seededStore(t, emb, docs)

	t.Run("returns the most similar documents", func(t *testing.T) {
		r := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{K: 1})

		got, err := r.Retrieve(ctx, "Paris is the capital of France")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "paris", got[0].ID)
	})

	t.Run("k limits the result count", func(t *testing.T) {
		r := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{K: 2})

		results, err := r.RetrieveWithConfig(ctx, "capital city", nil)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("score threshold drops weak matches", func(t *testing.T) {
		r := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{K: 3, ScoreThreshold: 0.999})

		results, err := r.RetrieveWithConfig(ctx, "Paris is the capital of France", nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "paris", results[0].Document.ID)
	})

	t.Run("per-call config overrides defaults", func(t *testing.T) {
		r := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{K: 1})

		results, err := r.RetrieveWithConfig(ctx, "capital", &ragpipe.RetrievalConfig{K: 3})
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("filter restricts candidates", func(t *testing.T) {
		filtered := seededStore(t, emb, []ragpipe.Document{
			{ID: "n1", Content: "breaking news", Metadata: map[string]any{"category": "news"}},
			{ID: "b1", Content: "breaking news", Metadata: map[string]any{"category": "blog"}},
		})
		r := NewVectorRetriever(filtered, emb, ragpipe.RetrievalConfig{
			K:      5,
			Filter: map[string]any{"category": "news"},
		})

		got, err := r.Retrieve(ctx, "breaking news")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "n1", got[0].ID)
	})
}

func TestMMR(t *testing.T) {
	ctx := context.Background()

	// Hand-built embeddings: near-a duplicates a, b is orthogonal.
	docs := []ragpipe.Document{
		{ID: "a", Content: "alpha", Embedding: []float32{1, 0, 0}},
		{ID: "near-a", Content: "alpha prime", Embedding: []float32{0.99, 0.1, 0}},
		{ID: "b", Content: "beta", Embedding: []float32{0, 1, 0.2}},
	}

	s := store.NewMemoryVectorStore(nil)
	require.NoError(t, s.Add(ctx, docs))

	// queryEmbedder returns a fixed embedding for any text.
	emb := fixedEmbedder{embedding: []float32{1, 0.05, 0}}

	t.Run("mmr prefers diversity over near-duplicates", func(t *testing.T) {
		r := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{
			K:          2,
			FetchK:     3,
			LambdaMult: lambdaPtr(0.1),
			SearchType: ragpipe.SearchTypeMMR,
		})

		got, err := r.Retrieve(ctx, "query")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].ID)
		assert.Equal(t, "b", got[1].ID)
	})

	t.Run("lambda one degenerates to similarity order", func(t *testing.T) {
		r := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{
			K:          2,
			FetchK:     3,
			LambdaMult: lambdaPtr(1),
			SearchType: ragpipe.SearchTypeMMR,
		})

		got, err := r.Retrieve(ctx, "query")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].ID)
		assert.Equal(t, "near-a", got[1].ID)
	})

	t.Run("lambda zero maximizes diversity", func(t *testing.T) {
		// With lambda 0.5 the second pick is the relevant-but-similar
		// doc; with an explicit lambda 0 only pairwise similarity
		// counts, so the orthogonal doc wins.
		docs := []ragpipe.Document{
			{ID: "top", Content: "top", Embedding: []float32{1, 0.1, 0}},
			{ID: "close", Content: "close", Embedding: []float32{0.7, 0.714, 0}},
			{ID: "far", Content: "far", Embedding: []float32{0, 0, 1}},
		}
		s := store.NewMemoryVectorStore(nil)
		require.NoError(t, s.Add(ctx, docs))
		emb := fixedEmbedder{embedding: []float32{1, 0.2, 0}}

		halves := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{
			K:          2,
			FetchK:     3,
			LambdaMult: lambdaPtr(0.5),
			SearchType: ragpipe.SearchTypeMMR,
		})
		got, err := halves.Retrieve(ctx, "query")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "close", got[1].ID)

		diverse := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{
			K:          2,
			FetchK:     3,
			LambdaMult: lambdaPtr(0),
			SearchType: ragpipe.SearchTypeMMR,
		})
		got, err = diverse.Retrieve(ctx, "query")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "top", got[0].ID)
		assert.Equal(t, "far", got[1].ID)
	})

	t.Run("nil lambda falls back to the half-half default", func(t *testing.T) {
		r := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{
			K:          2,
			FetchK:     3,
			SearchType: ragpipe.SearchTypeMMR,
		})

		got, err := r.Retrieve(ctx, "query")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].ID)
	})

	t.Run("jaccard fallback without embeddings", func(t *testing.T) {
		sim := documentSimilarity(
			ragpipe.Document{Content: "the quick brown fox"},
			ragpipe.Document{Content: "the quick red fox"},
		)
		assert.InDelta(t, 0.6, sim, 1e-9) // 3 shared / 5 union
	})
}

func lambdaPtr(v float64) *float64 { return &v }

// fixedEmbedder answers every text with the same vector.
type fixedEmbedder struct {
	embedding []float32
}

func (e fixedEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.embedding, nil
}

func (e fixedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.embedding
	}
	return out, nil
}

func (e fixedEmbedder) GetDimension() int { return len(e.embedding) }

// scriptedModel returns canned responses keyed by a substring of the
// prompt's document section.
type scriptedModel struct {
	responses map[string]string
}

func (m *scriptedModel) Generate(ctx context.Context, prompt string) (string, error) {
	for needle, response := range m.responses {
		if strings.Contains(prompt, needle) {
			return response, nil
		}
	}
	return "NOT_RELEVANT", nil
}

func (m *scriptedModel) GenerateStream(ctx context.Context, prompt string, fn func(string) error) error {
	response, err := m.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	return fn(response)
}

func TestCompressionRetriever(t *testing.T) {
	ctx := context.Background()
	emb := embedder.NewMockEmbedder(32)

	docs := []ragpipe.Document{
		{ID: "mixed", Content: "The Eiffel Tower is in Paris. Bananas are yellow."},
		{ID: "offtopic", Content: "Quarterly report for fiscal year 2023."},
	}
	s := seededStore(t, emb, docs)
	base := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{K: 2})

	model := &scriptedModel{responses: map[string]string{
		"Eiffel Tower": "The Eiffel Tower is in Paris.",
	}}

	r := NewCompressionRetriever(base, model)

	got, err := r.Retrieve(ctx, "Where is the Eiffel Tower?")
	require.NoError(t, err)

	// The off-topic document is dropped, the mixed one is trimmed.
	require.Len(t, got, 1)
	assert.Equal(t, "mixed", got[0].ID)
	assert.Equal(t, "The Eiffel Tower is in Paris.", got[0].Content)
}

func TestParentDocumentRetriever(t *testing.T) {
	ctx := context.Background()
	emb := embedder.NewMockEmbedder(32)

	parents := []ragpipe.Document{
		{ID: "doc1", Content: "full text of document one, both halves"},
		{ID: "doc2", Content: "full text of document two"},
	}
	docStore := store.NewMemoryDocStore()
	require.NoError(t, docStore.Put(ctx, parents))

	chunks := []ragpipe.Document{
		{ID: "doc1_chunk_0", Content: "document one first half", Metadata: map[string]any{"parent_id": "doc1"}},
		{ID: "doc1_chunk_1", Content: "document one second half", Metadata: map[string]any{"parent_id": "doc1"}},
		{ID: "doc2_chunk_0", Content: "document two only chunk", Metadata: map[string]any{"parent_id": "doc2"}},
	}
	s := seededStore(t, emb, chunks)
	base := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{K: 3})

	r := NewParentDocumentRetriever(base, docStore)

	t.Run("parents are returned once each", func(t *testing.T) {
		got, err := r.Retrieve(ctx, "document one first half")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "doc1", got[0].ID)
		assert.Equal(t, "full text of document one, both halves", got[0].Content)
		assert.Equal(t, "doc2", got[1].ID)
	})

	t.Run("parent score is its best chunk's score", func(t *testing.T) {
		results, err := r.RetrieveWithConfig(ctx, "document one first half", nil)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Greater(t, results[0].Score, results[1].Score)
	})

	t.Run("documents without parent_id stand for themselves", func(t *testing.T) {
		plain := seededStore(t, emb, []ragpipe.Document{{ID: "solo", Content: "standalone document"}})
		soloStore := store.NewMemoryDocStore()
		require.NoError(t, soloStore.Put(ctx, []ragpipe.Document{{ID: "solo", Content: "standalone document"}}))

		pr := NewParentDocumentRetriever(NewVectorRetriever(plain, emb, ragpipe.RetrievalConfig{K: 1}), soloStore)
		got, err := pr.Retrieve(ctx, "standalone document")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "solo", got[0].ID)
	})
}

// cannedRetriever returns a fixed ranking regardless of the query.
type cannedRetriever struct {
	results []ragpipe.SearchResult
}

func (r *cannedRetriever) Retrieve(ctx context.Context, query string) ([]ragpipe.Document, error) {
	docs := make([]ragpipe.Document, len(r.results))
	for i, result := range r.results {
		docs[i] = result.Document
	}
	return docs, nil
}

func (r *cannedRetriever) RetrieveWithConfig(ctx context.Context, query string, config *ragpipe.RetrievalConfig) ([]ragpipe.SearchResult, error) {
	return r.results, nil
}

func canned(ids ...string) *cannedRetriever {
	results := make([]ragpipe.SearchResult, len(ids))
	for i, id := range ids {
		results[i] = ragpipe.SearchResult{
			Document: ragpipe.Document{ID: id, Content: "content of " + id},
			Score:    1.0 - float64(i)*0.1,
		}
	}
	return &cannedRetriever{results: results}
}

func TestEnsembleRetriever(t *testing.T) {
	ctx := context.Background()

	t.Run("documents in several rankings fuse higher", func(t *testing.T) {
		r := NewEnsembleRetriever([]ragpipe.Retriever{
			canned("shared", "only-a"),
			canned("only-b", "shared"),
		}, nil, 3)

		got, err := r.Retrieve(ctx, "query")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "shared", got[0].ID)
	})

	t.Run("weights tilt the fusion", func(t *testing.T) {
		r := NewEnsembleRetriever([]ragpipe.Retriever{
			canned("a"),
			canned("b"),
		}, []float64{1, 10}, 2)

		got, err := r.Retrieve(ctx, "query")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ID)
	})

	t.Run("fused score is weighted reciprocal rank", func(t *testing.T) {
		r := NewEnsembleRetriever([]ragpipe.Retriever{
			canned("x"),
			canned("x"),
		}, nil, 1)

		results, err := r.RetrieveWithConfig(ctx, "query", nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.InDelta(t, 2.0/61.0, results[0].Score, 1e-9)
	})

	t.Run("documents without ids dedup by content", func(t *testing.T) {
		anon := func() *cannedRetriever {
			return &cannedRetriever{results: []ragpipe.SearchResult{
				{Document: ragpipe.Document{Content: "same content"}, Score: 1},
			}}
		}
		r := NewEnsembleRetriever([]ragpipe.Retriever{anon(), anon()}, nil, 5)

		got, err := r.Retrieve(ctx, "query")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("config k overrides the default", func(t *testing.T) {
		r := NewEnsembleRetriever([]ragpipe.Retriever{canned("a", "b", "c")}, nil, 3)

		results, err := r.RetrieveWithConfig(ctx, "query", &ragpipe.RetrievalConfig{K: 1})
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestKeywordReranker(t *testing.T) {
	ctx := context.Background()

	results := []ragpipe.SearchResult{
		{Document: ragpipe.Document{ID: "vague", Content: "a long discussion that mentions nothing in particular"}, Score: 0.9},
		{Document: ragpipe.Document{ID: "exact", Content: "gopher gopher gopher"}, Score: 0.85},
	}

	t.Run("keyword matches boost the ranking", func(t *testing.T) {
		r := NewKeywordReranker(0)

		reranked, err := r.Rerank(ctx, "gopher", results)
		require.NoError(t, err)
		require.Len(t, reranked, 2)
		assert.Equal(t, "exact", reranked[0].Document.ID)
	})

	t.Run("topN trims the output", func(t *testing.T) {
		r := NewKeywordReranker(1)

		reranked, err := r.Rerank(ctx, "gopher", results)
		require.NoError(t, err)
		assert.Len(t, reranked, 1)
	})
}

func TestRerankingRetriever(t *testing.T) {
	ctx := context.Background()

	base := &cannedRetriever{results: []ragpipe.SearchResult{
		{Document: ragpipe.Document{ID: "weak", Content: "unrelated text"}, Score: 0.9},
		{Document: ragpipe.Document{ID: "strong", Content: "query query query"}, Score: 0.8},
	}}

	r := NewRerankingRetriever(base, NewKeywordReranker(0))

	got, err := r.Retrieve(ctx, "query")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "strong", got[0].ID)
}

func TestEnsembleWithVectorRetrievers(t *testing.T) {
	ctx := context.Background()
	emb := embedder.NewMockEmbedder(32)

	docs := make([]ragpipe.Document, 0, 6)
	for i := 0; i < 6; i++ {
		docs = append(docs, ragpipe.Document{
			ID:      fmt.Sprintf("doc%d", i),
			Content: fmt.Sprintf("document number %d about topic %d", i, i%2),
		})
	}
	s := seededStore(t, emb, docs)

	dense := NewVectorRetriever(s, emb, ragpipe.RetrievalConfig{K: 4})
	reranked := NewRerankingRetriever(dense, NewKeywordReranker(4))

	r := NewEnsembleRetriever([]ragpipe.Retriever{dense, reranked}, []float64{1, 1}, 3)

	got, err := r.Retrieve(ctx, "document number 3 about topic 1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "doc3", got[0].ID)
}
