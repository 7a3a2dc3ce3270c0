package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smallnest/ragpipe"
)

// DBPool defines the interface for a database connection pool
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PgVectorStore implements ragpipe.VectorStore on PostgreSQL with the
// pgvector extension. Nearest-neighbor search runs in the database using
// the cosine distance operator.
type PgVectorStore struct {
	pool      DBPool
	embedder  ragpipe.Embedder
	tableName string
	dimension int
}

var _ ragpipe.VectorStore = (*PgVectorStore)(nil)

// PgVectorOptions configuration for the PostgreSQL connection
type PgVectorOptions struct {
	ConnString string
	TableName  string // Default "documents"
	Dimension  int    // Embedding dimension, required for schema creation
}

// NewPgVectorStore creates a pgvector-backed store and ensures its schema
func NewPgVectorStore(ctx context.Context, opts PgVectorOptions, embedder ragpipe.Embedder) (*PgVectorStore, error) {
	if opts.Dimension <= 0 {
		return nil, &ragpipe.ConfigError{Field: "dimension", Reason: "must be positive"}
	}

	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	s := newPgVectorStore(pool, embedder, opts.TableName, opts.Dimension)
	if err := s.InitSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPgVectorStoreWithPool wraps an existing pool, useful for testing
// with mocks. InitSchema is not called.
func NewPgVectorStoreWithPool(pool DBPool, embedder ragpipe.Embedder, tableName string, dimension int) *PgVectorStore {
	return newPgVectorStore(pool, embedder, tableName, dimension)
}

func newPgVectorStore(pool DBPool, embedder ragpipe.Embedder, tableName string, dimension int) *PgVectorStore {
	if tableName == "" {
		tableName = "documents"
	}
	return &PgVectorStore{
		pool:      pool,
		embedder:  embedder,
		tableName: tableName,
		dimension: dimension,
	}
}

// InitSchema creates the extension and table if they don't exist
func (s *PgVectorStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`, s.tableName, s.dimension)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Add embeds (when needed) and upserts the documents
func (s *PgVectorStore) Add(ctx context.Context, docs []ragpipe.Document) error {
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

// AddBatch upserts documents with explicit embeddings
func (s *PgVectorStore) AddBatch(ctx context.Context, docs []ragpipe.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return &ragpipe.ConfigError{Field: "embeddings", Reason: fmt.Sprintf("got %d embeddings for %d documents", len(embeddings), len(docs))}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding,
			updated_at = now()
	`, s.tableName)

	for i, doc := range docs {
		if len(embeddings[i]) != s.dimension {
			return &ragpipe.ConfigError{
				Field:  "embedding",
				Reason: fmt.Sprintf("document %s has dimension %d, store has %d", doc.ID, len(embeddings[i]), s.dimension),
			}
		}

		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}

		if _, err := s.pool.Exec(ctx, query, doc.ID, doc.Content, metadata, vectorLiteral(embeddings[i])); err != nil {
			return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
		}
	}

	return nil
}

// Search returns the k nearest documents by cosine similarity
func (s *PgVectorStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]ragpipe.SearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter returns the k nearest documents whose metadata
// contains every filter entry
func (s *PgVectorStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]ragpipe.SearchResult, error) {
	if k <= 0 {
		return nil, &ragpipe.ConfigError{Field: "k", Reason: "must be positive"}
	}

	args := []any{vectorLiteral(queryEmbedding)}
	where := ""
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", err)
		}
		where = "WHERE metadata @> $3"
		args = append(args, k, filterJSON)
	} else {
		args = append(args, k)
	}

	// 1 - cosine distance gives cosine similarity.
	query := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		%s
		ORDER BY embedding <=> $1, id
		LIMIT $2
	`, s.tableName, where)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	var results []ragpipe.SearchResult
	for rows.Next() {
		var (
			id       string
			content  string
			metadata []byte
			score    float64
		)
		if err := rows.Scan(&id, &content, &metadata, &score); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}

		doc := ragpipe.Document{ID: id, Content: content}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", id, err)
			}
		}

		results = append(results, ragpipe.SearchResult{Document: doc, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search rows: %w", err)
	}

	return results, nil
}

// Delete removes documents by ID
func (s *PgVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", s.tableName)
	if _, err := s.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// GetStats returns the current document count and dimension
func (s *PgVectorStore) GetStats(ctx context.Context) (*ragpipe.VectorStoreStats, error) {
	query := fmt.Sprintf("SELECT count(*), coalesce(max(updated_at), now()) FROM %s", s.tableName)

	var (
		count   int
		updated time.Time
	)
	if err := s.pool.QueryRow(ctx, query).Scan(&count, &updated); err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	return &ragpipe.VectorStoreStats{
		TotalDocuments: count,
		TotalVectors:   count,
		Dimension:      s.dimension,
		LastUpdated:    updated,
	}, nil
}

// Close closes the connection pool
func (s *PgVectorStore) Close() error {
	s.pool.Close()
	return nil
}

// vectorLiteral renders an embedding in pgvector's input format.
func vectorLiteral(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
