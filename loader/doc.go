// Package loader provides document loaders for the ingestion side of the
// pipeline: plain text files, CSV rows, PDFs, web pages and whole
// directory trees. Every loader implements ragpipe.DocumentLoader and
// reports unreachable sources as *ragpipe.SourceError.
package loader
