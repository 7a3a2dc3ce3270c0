package loader

import (
	"context"
	"fmt"
	"maps"
	"os"

	"github.com/smallnest/ragpipe"
)

// TextLoader loads a text file as a single document.
type TextLoader struct {
	filePath string
	metadata map[string]any
}

var _ ragpipe.DocumentLoader = (*TextLoader)(nil)

// TextLoaderOption configures the TextLoader
type TextLoaderOption func(*TextLoader)

// WithTextMetadata sets additional metadata for loaded documents
func WithTextMetadata(metadata map[string]any) TextLoaderOption {
	return func(l *TextLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewTextLoader creates a new TextLoader
func NewTextLoader(filePath string, opts ...TextLoaderOption) *TextLoader {
	l := &TextLoader{
		filePath: filePath,
		metadata: make(map[string]any),
	}

	l.metadata["source"] = filePath
	l.metadata["type"] = "text"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads the file as one document
func (l *TextLoader) Load(ctx context.Context) ([]ragpipe.Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata loads the file with additional metadata
func (l *TextLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]ragpipe.Document, error) {
	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)

	content, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.filePath, Err: err}
	}

	doc := ragpipe.Document{
		ID:       fmt.Sprintf("text_%s", l.filePath),
		Content:  string(content),
		Metadata: combined,
	}

	return []ragpipe.Document{doc}, nil
}
