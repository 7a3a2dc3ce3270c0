package loader

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/smallnest/ragpipe"
)

// DirectoryLoader walks a directory with a glob pattern and dispatches
// each matching file to the loader for its extension. Unknown extensions
// are skipped unless WithFailOnUnknown is set.
type DirectoryLoader struct {
	root          string
	pattern       string
	metadata      map[string]any
	failOnUnknown bool
}

var _ ragpipe.DocumentLoader = (*DirectoryLoader)(nil)

// DirectoryLoaderOption configures the DirectoryLoader
type DirectoryLoaderOption func(*DirectoryLoader)

// WithGlobPattern sets the glob pattern relative to the root, e.g. "**/*.md"
func WithGlobPattern(pattern string) DirectoryLoaderOption {
	return func(l *DirectoryLoader) {
		l.pattern = pattern
	}
}

// WithDirectoryMetadata sets additional metadata for loaded documents
func WithDirectoryMetadata(metadata map[string]any) DirectoryLoaderOption {
	return func(l *DirectoryLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// WithFailOnUnknown makes unsupported file extensions an error instead of a skip
func WithFailOnUnknown() DirectoryLoaderOption {
	return func(l *DirectoryLoader) {
		l.failOnUnknown = true
	}
}

// NewDirectoryLoader creates a loader over all supported files under root
func NewDirectoryLoader(root string, opts ...DirectoryLoaderOption) *DirectoryLoader {
	l := &DirectoryLoader{
		root:     root,
		pattern:  "**/*",
		metadata: make(map[string]any),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads every matching file under the root
func (l *DirectoryLoader) Load(ctx context.Context) ([]ragpipe.Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata loads every matching file with additional metadata
func (l *DirectoryLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]ragpipe.Document, error) {
	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)

	matches, err := doublestar.FilepathGlob(filepath.Join(l.root, l.pattern))
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.root, Err: err}
	}

	var docs []ragpipe.Document
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sub, err := l.loadFile(ctx, path, combined)
		if err != nil {
			return nil, err
		}
		docs = append(docs, sub...)
	}

	if len(docs) == 0 {
		return nil, &ragpipe.SourceError{Source: l.root, Err: fmt.Errorf("no loadable files matched %q", l.pattern)}
	}

	return docs, nil
}

func (l *DirectoryLoader) loadFile(ctx context.Context, path string, metadata map[string]any) ([]ragpipe.Document, error) {
	var inner ragpipe.DocumentLoader

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown", ".log":
		inner = NewTextLoader(path)
	case ".csv":
		inner = NewCSVLoader(path)
	case ".pdf":
		inner = NewPDFLoader(path)
	default:
		if l.failOnUnknown {
			return nil, &ragpipe.SourceError{Source: path, Err: fmt.Errorf("unsupported file extension")}
		}
		return nil, nil
	}

	return inner.LoadWithMetadata(ctx, metadata)
}
