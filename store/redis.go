package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smallnest/ragpipe"
)

// RedisVectorStore keeps documents and their embeddings in Redis so an
// index survives process restarts and can be shared. Search scans the
// keyspace and scores candidates client-side, which is fine for the
// corpus sizes this store targets.
type RedisVectorStore struct {
	client   *redis.Client
	embedder ragpipe.Embedder
	prefix   string
}

var _ ragpipe.VectorStore = (*RedisVectorStore)(nil)

// RedisVectorOptions configuration for the Redis connection
type RedisVectorOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Key prefix, default "ragpipe:doc:"
}

type redisRecord struct {
	Document  ragpipe.Document `json:"document"`
	Embedding []float32        `json:"embedding"`
}

// NewRedisVectorStore creates a Redis-backed vector store
func NewRedisVectorStore(opts RedisVectorOptions, embedder ragpipe.Embedder) *RedisVectorStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ragpipe:doc:"
	}

	return &RedisVectorStore{
		client:   client,
		embedder: embedder,
		prefix:   prefix,
	}
}

// NewRedisVectorStoreWithClient wraps an existing client, useful for tests
func NewRedisVectorStoreWithClient(client *redis.Client, embedder ragpipe.Embedder, prefix string) *RedisVectorStore {
	if prefix == "" {
		prefix = "ragpipe:doc:"
	}
	return &RedisVectorStore{client: client, embedder: embedder, prefix: prefix}
}

func (s *RedisVectorStore) docKey(id string) string {
	return s.prefix + id
}

// Add embeds (when needed) and stores the documents
func (s *RedisVectorStore) Add(ctx context.Context, docs []ragpipe.Document) error {
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
func (s *RedisVectorStore) AddBatch(ctx context.Context, docs []ragpipe.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return &ragpipe.ConfigError{Field: "embeddings", Reason: fmt.Sprintf("got %d embeddings for %d documents", len(embeddings), len(docs))}
	}

	pipe := s.client.Pipeline()
	for i, doc := range docs {
		record := redisRecord{Document: doc, Embedding: embeddings[i]}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal document %s: %w", doc.ID, err)
		}
		pipe.Set(ctx, s.docKey(doc.ID), data, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store documents in redis: %w", err)
	}
	return nil
}

// Search returns the k nearest documents by cosine similarity
func (s *RedisVectorStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]ragpipe.SearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter returns the k nearest documents matching the filter
func (s *RedisVectorStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]ragpipe.SearchResult, error) {
	if k <= 0 {
		return nil, &ragpipe.ConfigError{Field: "k", Reason: "must be positive"}
	}

	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	var results []ragpipe.SearchResult
	for _, record := range records {
		if !matchesFilter(record.Document, filter) {
			continue
		}
		results = append(results, ragpipe.SearchResult{
			Document: record.Document,
			Score:    cosineSimilarity(queryEmbedding, record.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Delete removes documents by ID
func (s *RedisVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}

	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete documents from redis: %w", err)
	}
	return nil
}

// GetStats returns the current document count and dimension
func (s *RedisVectorStore) GetStats(ctx context.Context) (*ragpipe.VectorStoreStats, error) {
	records, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ragpipe.VectorStoreStats{
		TotalDocuments: len(records),
		TotalVectors:   len(records),
		LastUpdated:    time.Now(),
	}
	if len(records) > 0 {
		stats.Dimension = len(records[0].Embedding)
	}
	return stats, nil
}

// Close closes the underlying Redis client
func (s *RedisVectorStore) Close() error {
	return s.client.Close()
}

func (s *RedisVectorStore) loadAll(ctx context.Context) ([]redisRecord, error) {
	var records []redisRecord

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan redis keys: %w", err)
	}

	// Stable order so equal scores keep a deterministic ranking.
	sort.Strings(keys)

	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to load document from redis: %w", err)
		}

		var record redisRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}
