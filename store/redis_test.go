package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/ragpipe"
	"github.com/smallnest/ragpipe/embedder"
)

func newTestRedisStore(t *testing.T) *RedisVectorStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisVectorStoreWithClient(client, embedder.NewMockEmbedder(16), "")
}

func TestRedisVectorStore(t *testing.T) {
	ctx := context.Background()

	t.Run("add and search by similarity", func(t *testing.T) {
		s := newTestRedisStore(t)
		emb := embedder.NewMockEmbedder(16)

		docs := []ragpipe.Document{
			{ID: "a", Content: "postgres stores relational data"},
			{ID: "b", Content: "redis is an in-memory key value store"},
		}
		require.NoError(t, s.Add(ctx, docs))

		query, err := emb.EmbedDocument(ctx, "redis is an in-memory key value store")
		require.NoError(t, err)

		results, err := s.Search(ctx, query, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "b", results[0].Document.ID)
	})

	t.Run("filter restricts candidates", func(t *testing.T) {
		s := newTestRedisStore(t)
		docs := []ragpipe.Document{
			{ID: "news", Content: "x", Metadata: map[string]any{"category": "news"}},
			{ID: "blog", Content: "x", Metadata: map[string]any{"category": "blog"}},
		}
		require.NoError(t, s.AddBatch(ctx, docs, [][]float32{{1, 0}, {1, 0}}))

		results, err := s.SearchWithFilter(ctx, []float32{1, 0}, 5, map[string]any{"category": "news"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "news", results[0].Document.ID)
	})

	t.Run("add overwrites documents with the same id", func(t *testing.T) {
		s := newTestRedisStore(t)
		require.NoError(t, s.AddBatch(ctx, []ragpipe.Document{{ID: "a", Content: "old"}}, [][]float32{{1, 0}}))
		require.NoError(t, s.AddBatch(ctx, []ragpipe.Document{{ID: "a", Content: "new"}}, [][]float32{{1, 0}}))

		stats, err := s.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalDocuments)

		results, err := s.Search(ctx, []float32{1, 0}, 1)
		require.NoError(t, err)
		assert.Equal(t, "new", results[0].Document.Content)
	})

	t.Run("delete removes documents", func(t *testing.T) {
		s := newTestRedisStore(t)
		docs := []ragpipe.Document{{ID: "keep"}, {ID: "drop"}}
		require.NoError(t, s.AddBatch(ctx, docs, [][]float32{{1, 0}, {0, 1}}))

		require.NoError(t, s.Delete(ctx, []string{"drop"}))

		stats, err := s.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalDocuments)
	})

	t.Run("stats report dimension", func(t *testing.T) {
		s := newTestRedisStore(t)
		require.NoError(t, s.AddBatch(ctx, []ragpipe.Document{{ID: "a"}}, [][]float32{{1, 2, 3}}))

		stats, err := s.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Dimension)
	})
}
