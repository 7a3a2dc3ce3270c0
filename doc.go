// Package ragpipe is a composable Retrieval-Augmented Generation (RAG)
// toolkit for Go.
//
// Documents flow Loader -> Splitter -> Embedder -> VectorStore for
// offline indexing, then Query -> Retriever -> Chain -> Answer for
// online serving. Every external collaborator (loaders, embedding
// providers, vector stores, LLMs) sits behind a small interface
// defined in this package; concrete implementations live in the
// subpackages.
//
// # Quick Start
//
// Index two documents and ask a question:
//
//	embedder := embedder.NewMockEmbedder(64)
//	vs := store.NewMemoryVectorStore(embedder)
//
//	idx := ragpipe.NewIndexer(
//		loader.NewStaticLoader(docs),
//		splitter.MustRecursiveCharacterTextSplitter(
//			splitter.WithChunkSize(500),
//			splitter.WithChunkOverlap(50),
//		),
//		embedder, vs,
//	)
//	if _, err := idx.Index(ctx); err != nil { ... }
//
//	chain := ragpipe.NewChain(
//		retriever.NewVectorRetriever(vs, embedder, ragpipe.RetrievalConfig{K: 4}),
//		model,
//	)
//	answer, err := chain.Run(ctx, "What is the capital of France?")
//
// # Components
//
//   - loader: text, static, directory (glob), CSV, web, and PDF loaders
//   - splitter: recursive, fixed-separator, markdown-header, and
//     token-aware splitters
//   - embedder: OpenAI embeddings, a cache-wrapping embedder, and a
//     deterministic mock for tests
//   - store: in-memory, Redis, pgvector, and Milvus vector stores plus
//     doc stores for parent-document retrieval
//   - retriever: similarity, MMR, contextual compression,
//     parent-document, and ensemble strategies plus a keyword reranker
//   - llm: chat models with token streaming
//   - cache: memory, Redis, and SQLite embedding caches
//
// Retrieval strategies form a closed set behind the Retriever
// interface; the Chain composes any of them with a prompt template and
// an LLM call, falling back to an insufficient-context answer when
// retrieval comes back empty.
package ragpipe // import "github.com/smallnest/ragpipe"
