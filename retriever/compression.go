package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/ragpipe"
)

// notRelevantSentinel is what the extraction prompt instructs the model
// to return for documents with no relevant content. Such documents are
// dropped from the result entirely.
const notRelevantSentinel = "NOT_RELEVANT"

const compressionPromptTemplate = `Given the following question and document, extract only the parts of the document that are relevant to answering the question. Keep extracted text verbatim, do not paraphrase.

If no part of the document is relevant, reply with exactly %s and nothing else.

Question: %s

Document:
%s

Relevant parts:`

// CompressionRetriever wraps another retriever and compresses each
// retrieved document down to the spans relevant to the query using a
// language model. Irrelevant documents are dropped.
type CompressionRetriever struct {
	base  ragpipe.Retriever
	model ragpipe.Model
}

var _ ragpipe.Retriever = (*CompressionRetriever)(nil)

// NewCompressionRetriever wraps base with LLM contextual compression
func NewCompressionRetriever(base ragpipe.Retriever, model ragpipe.Model) *CompressionRetriever {
	return &CompressionRetriever{
		base:  base,
		model: model,
	}
}

// Retrieve retrieves and compresses documents for the query
func (r *CompressionRetriever) Retrieve(ctx context.Context, query string) ([]ragpipe.Document, error) {
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

// RetrieveWithConfig retrieves with a per-call configuration and
// compresses the results
func (r *CompressionRetriever) RetrieveWithConfig(ctx context.Context, query string, config *ragpipe.RetrievalConfig) ([]ragpipe.SearchResult, error) {
	results, err := r.base.RetrieveWithConfig(ctx, query, config)
	if err != nil {
		return nil, err
	}

	compressed := make([]ragpipe.SearchResult, 0, len(results))
	for _, result := range results {
		extracted, err := r.compress(ctx, query, result.Document.Content)
		if err != nil {
			return nil, err
		}
		if extracted == "" {
			continue
		}

		doc := result.Document
		doc.Content = extracted
		compressed = append(compressed, ragpipe.SearchResult{
			Document: doc,
			Score:    result.Score,
			Metadata: result.Metadata,
		})
	}

	return compressed, nil
}

// compress returns the relevant spans of content, or "" when the model
// judged the document irrelevant.
func (r *CompressionRetriever) compress(ctx context.Context, query, content string) (string, error) {
	prompt := fmt.Sprintf(compressionPromptTemplate, notRelevantSentinel, query, content)

	response, err := r.model.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("compression failed: %w", err)
	}

	response = strings.TrimSpace(response)
	if response == "" || strings.EqualFold(response, notRelevantSentinel) {
		return "", nil
	}
	return response, nil
}
