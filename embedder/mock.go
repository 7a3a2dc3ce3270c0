package embedder

import (
	"context"
	"math"

	"github.com/smallnest/ragpipe"
)

// MockEmbedder is a deterministic embedder for testing. The same text
// always produces the same unit-length vector, and similar texts land
// close together, which is enough for exercising stores and retrievers
// without a provider.
type MockEmbedder struct {
	Dimension int
}

var _ ragpipe.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a new MockEmbedder
func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{
		Dimension: dimension,
	}
}

// EmbedDocument generates a deterministic embedding for the text
func (e *MockEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return e.generateEmbedding(text), nil
}

// EmbedDocuments generates deterministic embeddings for the texts
func (e *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.generateEmbedding(text)
	}
	return embeddings, nil
}

// GetDimension returns the embedding dimension
func (e *MockEmbedder) GetDimension() int {
	return e.Dimension
}

func (e *MockEmbedder) generateEmbedding(text string) []float32 {
	embedding := make([]float32, e.Dimension)

	for i := 0; i < e.Dimension; i++ {
		var sum float64
		for j, char := range text {
			sum += float64(char) * float64(i+j+1)
		}
		embedding[i] = float32(math.Sin(sum / 1000.0))
	}

	var norm float32
	for _, v := range embedding {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))

	if norm > 0 {
		for i := range embedding {
			embedding[i] /= norm
		}
	}

	return embedding
}
