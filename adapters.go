package ragpipe

import (
	"context"
	"fmt"
	"maps"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/tmc/langchaingo/vectorstores"
)

// Adapters for the langchaingo ecosystem, so its loaders, splitters,
// embedders, stores and models plug into this pipeline directly.

// LangChainDocumentLoader adapts a documentloaders.Loader to DocumentLoader.
type LangChainDocumentLoader struct {
	loader documentloaders.Loader
}

var _ DocumentLoader = (*LangChainDocumentLoader)(nil)

// NewLangChainDocumentLoader wraps a langchaingo document loader
func NewLangChainDocumentLoader(loader documentloaders.Loader) *LangChainDocumentLoader {
	return &LangChainDocumentLoader{loader: loader}
}

// Load loads documents through the wrapped loader
func (l *LangChainDocumentLoader) Load(ctx context.Context) ([]Document, error) {
	schemaDocs, err := l.loader.Load(ctx)
	if err != nil {
		return nil, &SourceError{Source: "langchain loader", Err: err}
	}
	return fromSchemaDocuments(schemaDocs), nil
}

// LoadWithMetadata loads documents and merges extra metadata into each
func (l *LangChainDocumentLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]Document, error) {
	docs, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range docs {
		if docs[i].Metadata == nil {
			docs[i].Metadata = make(map[string]any)
		}
		maps.Copy(docs[i].Metadata, metadata)
	}
	return docs, nil
}

// fromSchemaDocuments converts langchaingo schema documents
func fromSchemaDocuments(schemaDocs []schema.Document) []Document {
	docs := make([]Document, len(schemaDocs))
	for i, schemaDoc := range schemaDocs {
		metadata := make(map[string]any)
		maps.Copy(metadata, schemaDoc.Metadata)

		docs[i] = Document{
			Content:  schemaDoc.PageContent,
			Metadata: metadata,
		}

		if source, ok := schemaDoc.Metadata["source"]; ok {
			docs[i].ID = fmt.Sprintf("%v", source)
		} else {
			docs[i].ID = fmt.Sprintf("doc_%d", i)
		}
	}
	return docs
}

// LangChainTextSplitter adapts a textsplitter.TextSplitter to TextSplitter.
type LangChainTextSplitter struct {
	splitter textsplitter.TextSplitter
}

var _ TextSplitter = (*LangChainTextSplitter)(nil)

// NewLangChainTextSplitter wraps a langchaingo text splitter
func NewLangChainTextSplitter(splitter textsplitter.TextSplitter) *LangChainTextSplitter {
	return &LangChainTextSplitter{splitter: splitter}
}

// SplitText splits text through the wrapped splitter
func (l *LangChainTextSplitter) SplitText(text string) ([]string, error) {
	return l.splitter.SplitText(text)
}

// SplitDocuments splits each document, tagging chunks with parent_id,
// chunk_index and chunk_total metadata.
func (l *LangChainTextSplitter) SplitDocuments(docs []Document) ([]Document, error) {
	var result []Document
	for _, doc := range docs {
		chunks, err := l.splitter.SplitText(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %s: %w", doc.ID, err)
		}

		for i, chunk := range chunks {
			metadata := make(map[string]any)
			maps.Copy(metadata, doc.Metadata)
			metadata["parent_id"] = doc.ID
			metadata["chunk_index"] = i
			metadata["chunk_total"] = len(chunks)

			result = append(result, Document{
				ID:       fmt.Sprintf("%s_chunk_%d", doc.ID, i),
				Content:  chunk,
				Metadata: metadata,
			})
		}
	}
	return result, nil
}

// LangChainEmbedder adapts an embeddings.Embedder to Embedder.
type LangChainEmbedder struct {
	embedder embeddings.Embedder
}

var _ Embedder = (*LangChainEmbedder)(nil)

// NewLangChainEmbedder wraps a langchaingo embedder
func NewLangChainEmbedder(embedder embeddings.Embedder) *LangChainEmbedder {
	return &LangChainEmbedder{embedder: embedder}
}

// EmbedDocument embeds a single text
func (l *LangChainEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	embedding, err := l.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, &ProviderError{Provider: "langchain", Op: "embed_query", Err: err}
	}
	return embedding, nil
}

// EmbedDocuments embeds a batch of texts
func (l *LangChainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := l.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, &ProviderError{Provider: "langchain", Op: "embed_documents", Err: err}
	}
	return embeddings, nil
}

// GetDimension probes the wrapped embedder with a short text, since
// langchaingo embedders do not expose their dimension.
func (l *LangChainEmbedder) GetDimension() int {
	embedding, err := l.embedder.EmbedQuery(context.Background(), "test")
	if err != nil {
		return 0
	}
	return len(embedding)
}

// LangChainRetriever adapts a vectorstores.VectorStore to Retriever
// through its SimilaritySearch method.
type LangChainRetriever struct {
	store vectorstores.VectorStore
	topK  int
}

var _ Retriever = (*LangChainRetriever)(nil)

// NewLangChainRetriever wraps a langchaingo vector store as a retriever
func NewLangChainRetriever(store vectorstores.VectorStore, topK int) *LangChainRetriever {
	if topK <= 0 {
		topK = 4
	}
	return &LangChainRetriever{store: store, topK: topK}
}

// Retrieve retrieves documents for the query
func (r *LangChainRetriever) Retrieve(ctx context.Context, query string) ([]Document, error) {
	schemaDocs, err := r.store.SimilaritySearch(ctx, query, r.topK)
	if err != nil {
		return nil, &ProviderError{Provider: "langchain", Op: "similarity_search", Err: err}
	}
	return fromSchemaDocuments(schemaDocs), nil
}

// RetrieveWithConfig retrieves with a per-call configuration. Only K is
// honored; the generic langchaingo interface does not expose scores, so
// each result carries Score by descending rank.
func (r *LangChainRetriever) RetrieveWithConfig(ctx context.Context, query string, config *RetrievalConfig) ([]SearchResult, error) {
	k := r.topK
	if config != nil && config.K > 0 {
		k = config.K
	}

	schemaDocs, err := r.store.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, &ProviderError{Provider: "langchain", Op: "similarity_search", Err: err}
	}

	docs := fromSchemaDocuments(schemaDocs)
	results := make([]SearchResult, len(docs))
	for i, doc := range docs {
		score := 1.0 - float64(i)*0.05
		if s, ok := doc.Metadata["_score"]; ok {
			if f, ok := s.(float64); ok {
				score = f
			}
		}
		results[i] = SearchResult{Document: doc, Score: score}
	}
	return results, nil
}

// LangChainModel adapts a llms.Model to Model, so chains can generate
// with any langchaingo-supported provider.
type LangChainModel struct {
	model llms.Model
}

var _ Model = (*LangChainModel)(nil)

// NewLangChainModel wraps a langchaingo model
func NewLangChainModel(model llms.Model) *LangChainModel {
	return &LangChainModel{model: model}
}

// Generate returns the model's full response to the prompt
func (m *LangChainModel) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.model, prompt)
	if err != nil {
		return "", &ProviderError{Provider: "langchain", Op: "generate", Err: err}
	}
	return response, nil
}

// GenerateStream streams the response, calling fn once per chunk
func (m *LangChainModel) GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	_, err := llms.GenerateFromSinglePrompt(ctx, m.model, prompt,
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			return fn(string(chunk))
		}))
	if err != nil {
		return &ProviderError{Provider: "langchain", Op: "generate_stream", Err: err}
	}
	return nil
}
