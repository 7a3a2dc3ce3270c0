package splitter

import (
	"fmt"
	"maps"

	"github.com/smallnest/ragpipe"
)

// validateChunking rejects configurations the pipeline cannot honor.
func validateChunking(chunkSize, chunkOverlap int) error {
	if chunkSize <= 0 {
		return &ragpipe.ConfigError{Field: "chunk_size", Reason: fmt.Sprintf("must be positive, got %d", chunkSize)}
	}
	if chunkOverlap < 0 {
		return &ragpipe.ConfigError{Field: "chunk_overlap", Reason: fmt.Sprintf("must be non-negative, got %d", chunkOverlap)}
	}
	if chunkOverlap >= chunkSize {
		return &ragpipe.ConfigError{
			Field:  "chunk_overlap",
			Reason: fmt.Sprintf("overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize),
		}
	}
	return nil
}

// chunkDocuments turns per-document text chunks into chunk documents,
// inheriting metadata and recording the parent mapping.
func chunkDocuments(doc ragpipe.Document, textChunks []string) []ragpipe.Document {
	chunks := make([]ragpipe.Document, 0, len(textChunks))

	for i, chunk := range textChunks {
		metadata := make(map[string]any)
		maps.Copy(metadata, doc.Metadata)
		metadata["parent_id"] = doc.ID
		metadata["chunk_index"] = i
		metadata["chunk_total"] = len(textChunks)

		chunks = append(chunks, ragpipe.Document{
			ID:        fmt.Sprintf("%s_chunk_%d", doc.ID, i),
			Content:   chunk,
			Metadata:  metadata,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	return chunks
}
