package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/smallnest/ragpipe"
)

const (
	milvusFieldID        = "id"
	milvusFieldContent   = "content"
	milvusFieldMetadata  = "metadata"
	milvusFieldEmbedding = "embedding"

	milvusMaxContentLen = 65535
	milvusMaxIDLen      = 512
)

// MilvusVectorStore implements ragpipe.VectorStore on a Milvus
// collection with an HNSW index over the embedding field.
type MilvusVectorStore struct {
	client     *milvusclient.Client
	embedder   ragpipe.Embedder
	collection string
	dimension  int
}

var _ ragpipe.VectorStore = (*MilvusVectorStore)(nil)

// MilvusOptions configuration for the Milvus connection
type MilvusOptions struct {
	Address    string
	Collection string // Default "documents"
	Dimension  int    // Embedding dimension, required
}

// NewMilvusVectorStore connects to Milvus and ensures the collection
// exists with its index loaded.
func NewMilvusVectorStore(ctx context.Context, opts MilvusOptions, embedder ragpipe.Embedder) (*MilvusVectorStore, error) {
	if opts.Dimension <= 0 {
		return nil, &ragpipe.ConfigError{Field: "dimension", Reason: "must be positive"}
	}

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{Address: opts.Address})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	collection := opts.Collection
	if collection == "" {
		collection = "documents"
	}

	s := &MilvusVectorStore{
		client:     client,
		embedder:   embedder,
		collection: collection,
		dimension:  opts.Dimension,
	}

	if err := s.ensureCollection(ctx); err != nil {
		client.Close(ctx)
		return nil, err
	}

	return s, nil
}

// NewMilvusVectorStoreWithClient wraps an existing client without
// touching the collection, useful for tests.
func NewMilvusVectorStoreWithClient(client *milvusclient.Client, embedder ragpipe.Embedder, collection string, dimension int) *MilvusVectorStore {
	if collection == "" {
		collection = "documents"
	}
	return &MilvusVectorStore{
		client:     client,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
	}
}

func (s *MilvusVectorStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}

	if !exists {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Fields: []*entity.Field{
				{
					Name:       milvusFieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					TypeParams: map[string]string{"max_length": fmt.Sprint(milvusMaxIDLen)},
				},
				{
					Name:       milvusFieldContent,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": fmt.Sprint(milvusMaxContentLen)},
				},
				{
					Name:     milvusFieldMetadata,
					DataType: entity.FieldTypeJSON,
				},
				{
					Name:       milvusFieldEmbedding,
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{"dim": fmt.Sprint(s.dimension)},
				},
			},
		}

		createOpt := milvusclient.NewCreateCollectionOption(s.collection, schema)
		if err := s.client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
		}

		idx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		indexOpt := milvusclient.NewCreateIndexOption(s.collection, milvusFieldEmbedding, idx)
		if _, err := s.client.CreateIndex(ctx, indexOpt); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", s.collection, err)
		}
	}

	loadOpt := milvusclient.NewLoadCollectionOption(s.collection)
	if _, err := s.client.LoadCollection(ctx, loadOpt); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}

	return nil
}

// Add embeds (when needed) and stores the documents
func (s *MilvusVectorStore) Add(ctx context.Context, docs []ragpipe.Document) error {
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
func (s *MilvusVectorStore) AddBatch(ctx context.Context, docs []ragpipe.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return &ragpipe.ConfigError{Field: "embeddings", Reason: fmt.Sprintf("got %d embeddings for %d documents", len(embeddings), len(docs))}
	}
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	metadatas := make([][]byte, len(docs))

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

		ids[i] = doc.ID
		contents[i] = doc.Content
		metadatas[i] = metadata
	}

	insertOpt := milvusclient.NewColumnBasedInsertOption(s.collection,
		column.NewColumnVarChar(milvusFieldID, ids),
		column.NewColumnVarChar(milvusFieldContent, contents),
		column.NewColumnJSONBytes(milvusFieldMetadata, metadatas),
		column.NewColumnFloatVector(milvusFieldEmbedding, s.dimension, embeddings),
	)

	if _, err := s.client.Upsert(ctx, insertOpt); err != nil {
		return fmt.Errorf("failed to upsert documents into %s: %w", s.collection, err)
	}

	return nil
}

// Search returns the k nearest documents by cosine similarity
func (s *MilvusVectorStore) Search(ctx context.Context, queryEmbedding []float32, k int) ([]ragpipe.SearchResult, error) {
	return s.SearchWithFilter(ctx, queryEmbedding, k, nil)
}

// SearchWithFilter returns the k nearest documents whose metadata
// matches every filter entry
func (s *MilvusVectorStore) SearchWithFilter(ctx context.Context, queryEmbedding []float32, k int, filter map[string]any) ([]ragpipe.SearchResult, error) {
	if k <= 0 {
		return nil, &ragpipe.ConfigError{Field: "k", Reason: "must be positive"}
	}

	searchOpt := milvusclient.NewSearchOption(s.collection, k, []entity.Vector{entity.FloatVector(queryEmbedding)}).
		WithANNSField(milvusFieldEmbedding).
		WithOutputFields(milvusFieldContent, milvusFieldMetadata)

	if expr := milvusFilterExpr(filter); expr != "" {
		searchOpt = searchOpt.WithFilter(expr)
	}

	resultSets, err := s.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", s.collection, err)
	}

	var results []ragpipe.SearchResult
	for _, rs := range resultSets {
		contentCol := rs.GetColumn(milvusFieldContent)
		metadataCol := rs.GetColumn(milvusFieldMetadata)

		for i := 0; i < rs.ResultCount; i++ {
			id, err := rs.IDs.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("failed to read result id: %w", err)
			}

			doc := ragpipe.Document{ID: id}
			if contentCol != nil {
				if content, err := contentCol.GetAsString(i); err == nil {
					doc.Content = content
				}
			}
			if metadataCol != nil {
				if raw, err := metadataCol.GetAsString(i); err == nil && raw != "" {
					_ = json.Unmarshal([]byte(raw), &doc.Metadata)
				}
			}

			results = append(results, ragpipe.SearchResult{
				Document: doc,
				Score:    float64(rs.Scores[i]),
			})
		}
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
func (s *MilvusVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	deleteOpt := milvusclient.NewDeleteOption(s.collection).WithStringIDs(milvusFieldID, ids)
	if _, err := s.client.Delete(ctx, deleteOpt); err != nil {
		return fmt.Errorf("failed to delete documents from %s: %w", s.collection, err)
	}
	return nil
}

// GetStats returns the current document count and dimension
func (s *MilvusVectorStore) GetStats(ctx context.Context) (*ragpipe.VectorStoreStats, error) {
	queryOpt := milvusclient.NewQueryOption(s.collection).
		WithOutputFields("count(*)")

	results, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats for %s: %w", s.collection, err)
	}

	var count int64
	if col := results.GetColumn("count(*)"); col != nil && col.Len() > 0 {
		count, err = col.GetAsInt64(0)
		if err != nil {
			return nil, fmt.Errorf("failed to read count: %w", err)
		}
	}

	return &ragpipe.VectorStoreStats{
		TotalDocuments: int(count),
		TotalVectors:   int(count),
		Dimension:      s.dimension,
		LastUpdated:    time.Now(),
	}, nil
}

// Close releases the Milvus connection
func (s *MilvusVectorStore) Close() error {
	return s.client.Close(context.Background())
}

// milvusFilterExpr renders a metadata equality filter as a Milvus
// boolean expression over the JSON field.
func milvusFilterExpr(filter map[string]any) string {
	if len(filter) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for _, key := range keys {
		switch v := filter[key].(type) {
		case string:
			clauses = append(clauses, fmt.Sprintf(`%s["%s"] == "%s"`, milvusFieldMetadata, key, strings.ReplaceAll(v, `"`, `\"`)))
		default:
			clauses = append(clauses, fmt.Sprintf(`%s["%s"] == %v`, milvusFieldMetadata, key, v))
		}
	}
	return strings.Join(clauses, " and ")
}
