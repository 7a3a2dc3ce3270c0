package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/smallnest/ragpipe"
)

// SqliteDocStore is a ragpipe.DocStore backed by a local SQLite
// database, so parent documents survive process restarts.
type SqliteDocStore struct {
	db        *sql.DB
	tableName string
}

var _ ragpipe.DocStore = (*SqliteDocStore)(nil)

// SqliteDocStoreOptions configuration for the SQLite connection
type SqliteDocStoreOptions struct {
	Path      string
	TableName string // Default "parent_documents"
}

// NewSqliteDocStore opens (or creates) a SQLite-backed doc store
func NewSqliteDocStore(opts SqliteDocStoreOptions) (*SqliteDocStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "parent_documents"
	}

	s := &SqliteDocStore{
		db:        db,
		tableName: tableName,
	}

	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SqliteDocStore) initSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata TEXT
		);
	`, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Put stores documents by ID, overwriting existing entries
func (s *SqliteDocStore) Put(ctx context.Context, docs []ragpipe.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata
	`, s.tableName)

	for _, doc := range docs {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", doc.ID, err)
		}

		if _, err := s.db.ExecContext(ctx, query, doc.ID, doc.Content, string(metadata)); err != nil {
			return fmt.Errorf("failed to store document %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Get returns the documents for the given IDs, preserving the order of
// ids and skipping missing entries.
func (s *SqliteDocStore) Get(ctx context.Context, ids []string) ([]ragpipe.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf("SELECT id, content, metadata FROM %s WHERE id IN (%s)", s.tableName, placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]ragpipe.Document, len(ids))
	for rows.Next() {
		var (
			id       string
			content  string
			metadata sql.NullString
		)
		if err := rows.Scan(&id, &content, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}

		doc := ragpipe.Document{ID: id, Content: content}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", id, err)
			}
		}
		byID[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read document rows: %w", err)
	}

	var docs []ragpipe.Document
	for _, id := range ids {
		if doc, ok := byID[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Delete removes documents by ID
func (s *SqliteDocStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", s.tableName, placeholders)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SqliteDocStore) Close() error {
	return s.db.Close()
}
