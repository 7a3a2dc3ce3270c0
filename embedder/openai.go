package embedder

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smallnest/ragpipe"
)

// Dimensions of the common OpenAI embedding models.
var modelDimensions = map[openai.EmbeddingModel]int{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

// OpenAIEmbedder generates embeddings through the OpenAI embeddings API
// (or any endpoint speaking the same protocol).
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
}

var _ ragpipe.Embedder = (*OpenAIEmbedder)(nil)

// OpenAIEmbedderOption configures the OpenAIEmbedder
type OpenAIEmbedderOption func(*OpenAIEmbedder)

// WithEmbeddingModel sets the embedding model, default text-embedding-3-small
func WithEmbeddingModel(model openai.EmbeddingModel) OpenAIEmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.model = model
		if dim, ok := modelDimensions[model]; ok {
			e.dimension = dim
		}
	}
}

// WithDimension overrides the reported dimension, for non-OpenAI endpoints
func WithDimension(dimension int) OpenAIEmbedderOption {
	return func(e *OpenAIEmbedder) {
		e.dimension = dimension
	}
}

// NewOpenAIEmbedder creates an embedder using the given API key. An empty
// key falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIEmbedder(apiKey string, opts ...OpenAIEmbedderOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, &ragpipe.ConfigError{Field: "api_key", Reason: "missing OpenAI API key"}
	}

	e := &OpenAIEmbedder{
		client:    openai.NewClient(apiKey),
		model:     openai.SmallEmbedding3,
		dimension: modelDimensions[openai.SmallEmbedding3],
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// NewOpenAIEmbedderWithConfig creates an embedder from a full client
// config, for proxies and OpenAI-compatible endpoints.
func NewOpenAIEmbedderWithConfig(config openai.ClientConfig, opts ...OpenAIEmbedderOption) *OpenAIEmbedder {
	e := &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(config),
		model:     openai.SmallEmbedding3,
		dimension: modelDimensions[openai.SmallEmbedding3],
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// EmbedDocument generates an embedding for a single text
func (e *OpenAIEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedDocuments generates embeddings for a batch of texts. The returned
// slice preserves the input order.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, &ragpipe.ProviderError{Provider: "openai", Op: "embeddings", Err: err}
	}

	if len(resp.Data) != len(texts) {
		return nil, &ragpipe.ProviderError{
			Provider: "openai",
			Op:       "embeddings",
			Err:      fmt.Errorf("got %d vectors for %d inputs", len(resp.Data), len(texts)),
		}
	}

	// The API may return data out of order; Index is authoritative.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, &ragpipe.ProviderError{
				Provider: "openai",
				Op:       "embeddings",
				Err:      fmt.Errorf("embedding index %d out of range", d.Index),
			}
		}
		embeddings[d.Index] = d.Embedding
	}

	return embeddings, nil
}

// GetDimension returns the embedding dimension for the configured model
func (e *OpenAIEmbedder) GetDimension() int {
	return e.dimension
}

// Model returns the configured embedding model name
func (e *OpenAIEmbedder) Model() string {
	return string(e.model)
}
