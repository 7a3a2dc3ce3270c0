package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteCache implements Cache using a local SQLite database, giving the
// embedding cache durability across process restarts without a server.
type SqliteCache struct {
	db        *sql.DB
	tableName string
}

var _ Cache = (*SqliteCache)(nil)

// SqliteOptions configuration for the SQLite connection
type SqliteOptions struct {
	Path      string
	TableName string // Default "embedding_cache"
}

// NewSqliteCache opens (or creates) a SQLite-backed embedding cache
func NewSqliteCache(opts SqliteOptions) (*SqliteCache, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "embedding_cache"
	}

	c := &SqliteCache{
		db:        db,
		tableName: tableName,
	}

	if err := c.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

func (c *SqliteCache) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			embedding TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`, c.tableName)

	_, err := c.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Get returns the cached vector for key
func (c *SqliteCache) Get(ctx context.Context, key string) ([]float32, error) {
	query := fmt.Sprintf("SELECT embedding FROM %s WHERE key = ?", c.tableName)

	var data string
	err := c.db.QueryRowContext(ctx, query, key).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query embedding: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal([]byte(data), &embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	return embedding, nil
}

// Set stores the vector under key
func (c *SqliteCache) Set(ctx context.Context, key string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, embedding) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET embedding = excluded.embedding
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	return nil
}

// Delete removes the entry for key
func (c *SqliteCache) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE key = ?", c.tableName)
	if _, err := c.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}

// Close closes the database connection
func (c *SqliteCache) Close() error {
	return c.db.Close()
}
