package loader

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"github.com/smallnest/ragpipe"
)

// PDFLoader extracts plain text from a PDF file as a single document.
type PDFLoader struct {
	path     string
	metadata map[string]any
}

var _ ragpipe.DocumentLoader = (*PDFLoader)(nil)

// PDFLoaderOption configures the PDFLoader
type PDFLoaderOption func(*PDFLoader)

// WithPDFMetadata sets additional metadata for loaded documents
func WithPDFMetadata(metadata map[string]any) PDFLoaderOption {
	return func(l *PDFLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewPDFLoader creates a new PDFLoader for the given file path
func NewPDFLoader(path string, opts ...PDFLoaderOption) *PDFLoader {
	l := &PDFLoader{
		path:     path,
		metadata: make(map[string]any),
	}

	l.metadata["source"] = path
	l.metadata["type"] = "pdf"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load extracts the PDF text as one document
func (l *PDFLoader) Load(ctx context.Context) ([]ragpipe.Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata extracts the PDF text with additional metadata
func (l *PDFLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]ragpipe.Document, error) {
	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)

	f, rdr, err := pdf.Open(l.path)
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.path, Err: err}
	}
	defer f.Close()

	combined["pages"] = rdr.NumPage()

	plain, err := rdr.GetPlainText()
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.path, Err: err}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, &ragpipe.SourceError{Source: l.path, Err: err}
	}

	if buf.Len() == 0 {
		return nil, &ragpipe.SourceError{Source: l.path, Err: fmt.Errorf("no extractable text")}
	}

	return []ragpipe.Document{{
		ID:       fmt.Sprintf("pdf_%s", filepath.Base(l.path)),
		Content:  buf.String(),
		Metadata: combined,
	}}, nil
}
