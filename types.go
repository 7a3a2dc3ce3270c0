package ragpipe

import (
	"context"
	"time"
)

// Document is a unit of content flowing through the pipeline. Loaders
// produce whole documents; splitters produce chunk documents that carry
// parent_id / chunk_index / chunk_total metadata.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// SearchResult is a document with its retrieval score.
type SearchResult struct {
	Document Document       `json:"document"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Search types recognized by RetrievalConfig.
const (
	SearchTypeSimilarity = "similarity"
	SearchTypeMMR        = "mmr"
)

// RetrievalConfig is the recognized retrieval option surface.
type RetrievalConfig struct {
	// K is the number of documents to return.
	K int `json:"k"`
	// FetchK is the candidate pool size fetched before MMR selection.
	// fetch_k >= k; zero means 2*k.
	FetchK int `json:"fetch_k,omitempty"`
	// LambdaMult balances relevance against diversity for MMR.
	// 1 degenerates to plain similarity, 0 maximizes diversity.
	// Nil selects the default of 0.5.
	LambdaMult *float64 `json:"lambda_mult,omitempty"`
	// ScoreThreshold drops results scoring below it when positive.
	ScoreThreshold float64 `json:"score_threshold,omitempty"`
	// SearchType selects the strategy: "similarity" or "mmr".
	SearchType string `json:"search_type,omitempty"`
	// Filter restricts candidates by metadata equality.
	Filter map[string]any `json:"filter,omitempty"`
	// IncludeScores controls score annotation in formatted context.
	IncludeScores bool `json:"include_scores,omitempty"`
}

// VectorStoreStats describes the current contents of a vector store.
type VectorStoreStats struct {
	TotalDocuments int       `json:"total_documents"`
	TotalVectors   int       `json:"total_vectors"`
	Dimension      int       `json:"dimension"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Answer is the output of a chain run.
type Answer struct {
	Query     string     `json:"query"`
	Text      string     `json:"text"`
	Sources   []Document `json:"sources,omitempty"`
	Citations []string   `json:"citations,omitempty"`
}

// Message is a single conversation turn used by history-aware chains.
type Message struct {
	Role    string `json:"role"` // "human" or "assistant"
	Content string `json:"content"`
}

// DocumentLoader reads raw content from a source and normalizes it
// into documents, propagating source identity into metadata.
type DocumentLoader interface {
	Load(ctx context.Context) ([]Document, error)
	LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]Document, error)
}

// TextSplitter partitions text into bounded-size chunks.
type TextSplitter interface {
	SplitText(text string) ([]string, error)
	SplitDocuments(docs []Document) ([]Document, error)
}

// Embedder maps text to fixed-length vectors. EmbedDocuments is
// order-preserving and produces the same vectors as per-item calls.
type Embedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	GetDimension() int
}

// VectorStore persists (vector, content, metadata) records and answers
// nearest-neighbor queries. Implementations must support concurrent
// reads; writers are serialized internally.
type VectorStore interface {
	Add(ctx context.Context, docs []Document) error
	AddBatch(ctx context.Context, docs []Document, embeddings [][]float32) error
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]SearchResult, error)
	SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]SearchResult, error)
	Delete(ctx context.Context, ids []string) error
	GetStats(ctx context.Context) (*VectorStoreStats, error)
	Close() error
}

// DocStore is a side store for parent document content keyed by ID,
// used by parent-document retrieval.
type DocStore interface {
	Put(ctx context.Context, docs []Document) error
	Get(ctx context.Context, ids []string) ([]Document, error)
	Delete(ctx context.Context, ids []string) error
}

// Retriever answers "query text -> ranked documents" regardless of the
// underlying strategy.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Document, error)
	RetrieveWithConfig(ctx context.Context, query string, config *RetrievalConfig) ([]SearchResult, error)
}

// Reranker reorders an initial candidate set with a more precise
// relevance model.
type Reranker interface {
	Rerank(ctx context.Context, query string, results []SearchResult) ([]SearchResult, error)
}

// Model generates text from a prompt. GenerateStream delivers the
// response incrementally through the callback, one call per chunk in
// order.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) error
}
