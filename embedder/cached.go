package embedder

import (
	"context"
	"errors"

	"github.com/smallnest/ragpipe"
	"github.com/smallnest/ragpipe/cache"
	"github.com/smallnest/ragpipe/log"
)

var logger = log.Component("embedder")

// CachedEmbedder wraps another embedder with a cache.Cache so identical
// text is only sent to the provider once. Cache failures degrade to a
// provider call rather than failing the embedding.
type CachedEmbedder struct {
	inner    ragpipe.Embedder
	cache    cache.Cache
	provider string
	model    string
}

var _ ragpipe.Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with c. Provider and model become part of
// the cache key so different embedders never collide.
func NewCachedEmbedder(inner ragpipe.Embedder, c cache.Cache, provider, model string) *CachedEmbedder {
	return &CachedEmbedder{
		inner:    inner,
		cache:    c,
		provider: provider,
		model:    model,
	}
}

// EmbedDocument returns the cached embedding for text, embedding and
// caching it on a miss.
func (e *CachedEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key(e.provider, e.model, text)

	cached, err := e.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		logger.Warn("embedding cache get failed: %v", err)
	}

	embedding, err := e.inner.EmbedDocument(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := e.cache.Set(ctx, key, embedding); err != nil {
		logger.Warn("embedding cache set failed: %v", err)
	}

	return embedding, nil
}

// EmbedDocuments embeds a batch, sending only uncached texts to the
// wrapped embedder. Output order matches the input.
func (e *CachedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int

	for i, text := range texts {
		key := cache.Key(e.provider, e.model, text)
		cached, err := e.cache.Get(ctx, key)
		if err == nil {
			embeddings[i] = cached
			continue
		}
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("embedding cache get failed: %v", err)
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return embeddings, nil
	}

	fresh, err := e.inner.EmbedDocuments(ctx, missing)
	if err != nil {
		return nil, err
	}

	for j, embedding := range fresh {
		i := missingIdx[j]
		embeddings[i] = embedding

		key := cache.Key(e.provider, e.model, texts[i])
		if err := e.cache.Set(ctx, key, embedding); err != nil {
			logger.Warn("embedding cache set failed: %v", err)
		}
	}

	return embeddings, nil
}

// GetDimension returns the wrapped embedder's dimension
func (e *CachedEmbedder) GetDimension() int {
	return e.inner.GetDimension()
}
