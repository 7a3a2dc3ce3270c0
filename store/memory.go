package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/smallnest/ragpipe"
)

// MemoryVectorStore is an in-memory vector store with exact cosine
// search. Reads take a shared lock; ties in score keep insertion order
// so results are stable across runs.
type MemoryVectorStore struct {
	mu         sync.RWMutex
	documents  []ragpipe.Document
	embeddings [][]float32
	embedder   ragpipe.Embedder
	updatedAt  time.Time
}

var _ ragpipe.VectorStore = (*MemoryVectorStore)(nil)

// NewMemoryVectorStore creates an empty store. The embedder is used for
// documents added without an embedding; it may be nil if every document
// arrives pre-embedded.
func NewMemoryVectorStore(embedder ragpipe.Embedder) *MemoryVectorStore {
	return &MemoryVectorStore{
		documents:  make([]ragpipe.Document, 0),
		embeddings: make([][]float32, 0),
		embedder:   embedder,
	}
}

// Add embeds (when needed) and stores the documents
func (s *MemoryVectorStore) Add(ctx context.Context, docs []ragpipe.Document) error {
	embeddings := make([][]float32, len(docs))
	for i, doc := range docs {
		embedding := doc.Embedding
		if len(embedding) == 0 {
			if s.embedder == nil {
				return &ragpipe.ConfigError{Field: "embedder", Reason: fmt.Sprintf("document %s has no embedding and no embedder is configured", doc.ID)}
			}
			var err error
			embedding, err = s.embedder.EmbedDocument(ctx, doc.Content)
			if err != nil {
				return fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
			}
		}
		embeddings[i] = embedding
	}

	return s.AddBatch(ctx, docs, embeddings)
}

// AddBatch stores documents with explicit embeddings
func (s *MemoryVectorStore) AddBatch(ctx context.Context, docs []ragpipe.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return &ragpipe.ConfigError{Field: "embeddings", Reason: fmt.Sprintf("got %d embeddings for %d documents", len(embeddings), len(docs))}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, embedding := range embeddings {
		if dim := s.dimensionLocked(); dim > 0 && len(embedding) != dim {
			return &ragpipe.ConfigError{
				Field:  "embedding",
				Reason: fmt.Sprintf("document %s has dimension %d, store has %d", docs[i].ID, len(embedding), dim),
			}
		}
		s.documents = append(s.documents, docs[i])
		s.embeddings = append(s.embeddings, embedding)
	}
	s.updatedAt = time.Now()

	return nil
}

// Search returns the k nearest documents by cosine similarity
func (s *MemoryVectorStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]ragpipe.SearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter returns the k nearest documents whose metadata
// matches every filter entry
func (s *MemoryVectorStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]ragpipe.SearchResult, error) {
	if k <= 0 {
		return nil, &ragpipe.ConfigError{Field: "k", Reason: "must be positive"}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type docScore struct {
		index int
		score float64
	}

	var scores []docScore
	for i, doc := range s.documents {
		if !matchesFilter(doc, filter) {
			continue
		}
		scores = append(scores, docScore{index: i, score: cosineSimilarity(queryEmbedding, s.embeddings[i])})
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]ragpipe.SearchResult, k)
	for i := 0; i < k; i++ {
		results[i] = ragpipe.SearchResult{
			Document: s.documents[scores[i].index],
			Score:    scores[i].score,
		}
	}

	return results, nil
}

// Delete removes documents by ID
func (s *MemoryVectorStore) Delete(ctx context.Context, ids []string) error {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []ragpipe.Document
	var embeddings [][]float32
	for i, doc := range s.documents {
		if !idSet[doc.ID] {
			docs = append(docs, doc)
			embeddings = append(embeddings, s.embeddings[i])
		}
	}

	s.documents = docs
	s.embeddings = embeddings
	s.updatedAt = time.Now()
	return nil
}

// GetStats returns the current document count and dimension
func (s *MemoryVectorStore) GetStats(ctx context.Context) (*ragpipe.VectorStoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &ragpipe.VectorStoreStats{
		TotalDocuments: len(s.documents),
		TotalVectors:   len(s.embeddings),
		Dimension:      s.dimensionLocked(),
		LastUpdated:    s.updatedAt,
	}, nil
}

// Close clears the store
func (s *MemoryVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = nil
	s.embeddings = nil
	return nil
}

type persistedStore struct {
	Documents  []ragpipe.Document `json:"documents"`
	Embeddings [][]float32        `json:"embeddings"`
}

// Persist writes the store contents to path as JSON
func (s *MemoryVectorStore) Persist(path string) error {
	s.mu.RLock()
	snapshot := persistedStore{Documents: s.documents, Embeddings: s.embeddings}
	data, err := json.Marshal(snapshot)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}

// Load replaces the store contents with a previously persisted snapshot
func (s *MemoryVectorStore) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ragpipe.SourceError{Source: path, Err: err}
	}

	var snapshot persistedStore
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("failed to unmarshal store file: %w", err)
	}
	if len(snapshot.Documents) != len(snapshot.Embeddings) {
		return fmt.Errorf("corrupt store file: %d documents, %d embeddings", len(snapshot.Documents), len(snapshot.Embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = snapshot.Documents
	s.embeddings = snapshot.Embeddings
	s.updatedAt = time.Now()
	return nil
}

func (s *MemoryVectorStore) dimensionLocked() int {
	if len(s.embeddings) == 0 {
		return 0
	}
	return len(s.embeddings[0])
}

// matchesFilter reports whether every filter entry equals the document's
// metadata value for that key.
func matchesFilter(doc ragpipe.Document, filter map[string]any) bool {
	for key, value := range filter {
		docValue, exists := doc.Metadata[key]
		if !exists || docValue != value {
			return false
		}
	}
	return true
}

// cosineSimilarity calculates cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float64
	var normA float64
	var normB float64

	for i := range a {
		dotProduct += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
