package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/ragpipe"
	"github.com/smallnest/ragpipe/cache"
)

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(64)

	t.Run("deterministic", func(t *testing.T) {
		a, err := e.EmbedDocument(ctx, "hello world")
		require.NoError(t, err)
		b, err := e.EmbedDocument(ctx, "hello world")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("dimension matches", func(t *testing.T) {
		v, err := e.EmbedDocument(ctx, "x")
		require.NoError(t, err)
		assert.Len(t, v, e.GetDimension())
	})

	t.Run("unit length", func(t *testing.T) {
		v, err := e.EmbedDocument(ctx, "some text")
		require.NoError(t, err)

		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, norm, 1e-4)
	})

	t.Run("batch equals per-item", func(t *testing.T) {
		texts := []string{"one", "two", "three"}

		batch, err := e.EmbedDocuments(ctx, texts)
		require.NoError(t, err)
		require.Len(t, batch, len(texts))

		for i, text := range texts {
			single, err := e.EmbedDocument(ctx, text)
			require.NoError(t, err)
			assert.Equal(t, single, batch[i])
		}
	})
}

func TestNewOpenAIEmbedder(t *testing.T) {
	t.Run("missing key is a config error", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")

		_, err := NewOpenAIEmbedder("")
		require.Error(t, err)

		var cfgErr *ragpipe.ConfigError
		require.True(t, errors.As(err, &cfgErr))
		assert.Equal(t, "api_key", cfgErr.Field)
	})

	t.Run("default model dimension", func(t *testing.T) {
		e, err := NewOpenAIEmbedder("test-key")
		require.NoError(t, err)
		assert.Equal(t, 1536, e.GetDimension())
	})
}

// countingEmbedder wraps MockEmbedder and counts provider calls.
type countingEmbedder struct {
	*MockEmbedder
	calls int
	texts int
}

func (e *countingEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	e.texts++
	return e.MockEmbedder.EmbedDocument(ctx, text)
}

func (e *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.texts += len(texts)
	return e.MockEmbedder.EmbedDocuments(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("second embed hits the cache", func(t *testing.T) {
		inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
		e := NewCachedEmbedder(inner, cache.NewMemoryCache(), "mock", "m32")

		first, err := e.EmbedDocument(ctx, "cached text")
		require.NoError(t, err)
		second, err := e.EmbedDocument(ctx, "cached text")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, inner.calls)
	})

	t.Run("batch only embeds misses", func(t *testing.T) {
		inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
		e := NewCachedEmbedder(inner, cache.NewMemoryCache(), "mock", "m32")

		_, err := e.EmbedDocument(ctx, "warm")
		require.NoError(t, err)
		inner.texts = 0

		batch, err := e.EmbedDocuments(ctx, []string{"warm", "cold-a", "cold-b"})
		require.NoError(t, err)
		require.Len(t, batch, 3)
		assert.Equal(t, 2, inner.texts)

		// Order is preserved regardless of which entries were cached.
		for i, text := range []string{"warm", "cold-a", "cold-b"} {
			want, err := inner.MockEmbedder.EmbedDocument(ctx, text)
			require.NoError(t, err)
			assert.Equal(t, want, batch[i])
		}
	})

	t.Run("all-hit batch skips the provider", func(t *testing.T) {
		inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
		e := NewCachedEmbedder(inner, cache.NewMemoryCache(), "mock", "m32")

		texts := []string{"a", "b"}
		_, err := e.EmbedDocuments(ctx, texts)
		require.NoError(t, err)
		inner.calls = 0

		_, err = e.EmbedDocuments(ctx, texts)
		require.NoError(t, err)
		assert.Equal(t, 0, inner.calls)
	})

	t.Run("different models use different keys", func(t *testing.T) {
		shared := cache.NewMemoryCache()
		small := NewCachedEmbedder(NewMockEmbedder(16), shared, "mock", "small")
		large := NewCachedEmbedder(NewMockEmbedder(32), shared, "mock", "large")

		a, err := small.EmbedDocument(ctx, "same text")
		require.NoError(t, err)
		b, err := large.EmbedDocument(ctx, "same text")
		require.NoError(t, err)

		assert.Len(t, a, 16)
		assert.Len(t, b, 32)
	})
}
