// Package retriever implements retrieval strategies over a vector
// store: plain similarity and MMR search, LLM contextual compression,
// parent-document expansion, weighted reciprocal rank fusion across
// retrievers, and keyword reranking.
package retriever
