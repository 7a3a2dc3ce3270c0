package ragpipe

import (
	"context"
	"fmt"

	"github.com/smallnest/ragpipe/log"
)

var logger = log.Component("indexer")

// Indexer is the offline half of the pipeline: load, split, embed,
// store. It pushes documents through each stage in order and returns
// how many chunks landed in the vector store.
type Indexer struct {
	loader    DocumentLoader
	splitter  TextSplitter
	embedder  Embedder
	store     VectorStore
	docStore  DocStore
	batchSize int
}

// IndexerOption configures an Indexer
type IndexerOption func(*Indexer)

// WithDocStore also writes the unsplit parent documents to a doc store,
// enabling parent-document retrieval over the index.
func WithDocStore(docStore DocStore) IndexerOption {
	return func(idx *Indexer) {
		idx.docStore = docStore
	}
}

// WithBatchSize sets how many chunks are embedded per provider call,
// default 64
func WithBatchSize(batchSize int) IndexerOption {
	return func(idx *Indexer) {
		if batchSize > 0 {
			idx.batchSize = batchSize
		}
	}
}

// NewIndexer wires the offline pipeline stages together
func NewIndexer(loader DocumentLoader, splitter TextSplitter, embedder Embedder, store VectorStore, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		loader:    loader,
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		batchSize: 64,
	}

	for _, opt := range opts {
		opt(idx)
	}

	return idx
}

// Index runs the pipeline end to end and returns the number of chunks
// added to the vector store.
func (idx *Indexer) Index(ctx context.Context) (int, error) {
	docs, err := idx.loader.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load failed: %w", err)
	}
	logger.Info("loaded %d documents", len(docs))
	if len(docs) == 0 {
		return 0, ErrEmptyResult
	}

	if idx.docStore != nil {
		if err := idx.docStore.Put(ctx, docs); err != nil {
			return 0, fmt.Errorf("failed to store parent documents: %w", err)
		}
	}

	chunks, err := idx.splitter.SplitDocuments(docs)
	if err != nil {
		return 0, fmt.Errorf("split failed: %w", err)
	}
	logger.Info("split into %d chunks", len(chunks))

	for start := 0; start < len(chunks); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		embeddings, err := idx.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embedding failed: %w", err)
		}

		if err := idx.store.AddBatch(ctx, batch, embeddings); err != nil {
			return 0, fmt.Errorf("failed to store chunks: %w", err)
		}
	}

	logger.Info("indexed %d chunks", len(chunks))
	return len(chunks), nil
}
