// Package store provides vector store and document store backends.
//
// Vector stores persist (embedding, content, metadata) records and
// answer nearest-neighbor queries: MemoryVectorStore for tests and
// small corpora, RedisVectorStore for a shared index, PgVectorStore for
// PostgreSQL with the pgvector extension, and MilvusVectorStore for a
// dedicated vector database. Doc stores hold full parent documents for
// parent-document retrieval.
package store
