// Package embedder implements ragpipe.Embedder backends: the OpenAI
// embeddings API, a cache-fronted wrapper, and a deterministic mock for
// tests.
package embedder
