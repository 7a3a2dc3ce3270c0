package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/smallnest/ragpipe"
)

// CSVLoader loads a CSV file as one document per row. Header columns
// become metadata keys; the row text is "column: value" lines so the
// content stays searchable.
type CSVLoader struct {
	filePath       string
	metadata       map[string]any
	contentColumns []string
	separator      rune
}

var _ ragpipe.DocumentLoader = (*CSVLoader)(nil)

// CSVLoaderOption configures the CSVLoader
type CSVLoaderOption func(*CSVLoader)

// WithContentColumns restricts which columns form the document content;
// all columns still land in metadata.
func WithContentColumns(columns ...string) CSVLoaderOption {
	return func(l *CSVLoader) {
		l.contentColumns = columns
	}
}

// WithCSVSeparator sets the field separator (default comma)
func WithCSVSeparator(sep rune) CSVLoaderOption {
	return func(l *CSVLoader) {
		l.separator = sep
	}
}

// WithCSVMetadata sets additional metadata for loaded documents
func WithCSVMetadata(metadata map[string]any) CSVLoaderOption {
	return func(l *CSVLoader) {
		maps.Copy(l.metadata, metadata)
	}
}

// NewCSVLoader creates a new CSVLoader
func NewCSVLoader(filePath string, opts ...CSVLoaderOption) *CSVLoader {
	l := &CSVLoader{
		filePath:  filePath,
		metadata:  make(map[string]any),
		separator: ',',
	}

	l.metadata["source"] = filePath
	l.metadata["type"] = "csv"

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load loads one document per CSV row
func (l *CSVLoader) Load(ctx context.Context) ([]ragpipe.Document, error) {
	return l.LoadWithMetadata(ctx, nil)
}

// LoadWithMetadata loads documents with additional metadata
func (l *CSVLoader) LoadWithMetadata(ctx context.Context, metadata map[string]any) ([]ragpipe.Document, error) {
	combined := make(map[string]any)
	maps.Copy(combined, l.metadata)
	maps.Copy(combined, metadata)

	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.filePath, Err: err}
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = l.separator

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ragpipe.SourceError{Source: l.filePath, Err: err}
	}
	if len(records) == 0 {
		return nil, &ragpipe.SourceError{Source: l.filePath, Err: fmt.Errorf("csv file is empty")}
	}

	header := records[0]
	contentSet := make(map[string]bool, len(l.contentColumns))
	for _, col := range l.contentColumns {
		contentSet[col] = true
	}

	var documents []ragpipe.Document
	for rowNum, record := range records[1:] {
		rowMetadata := make(map[string]any)
		maps.Copy(rowMetadata, combined)
		rowMetadata["row"] = rowNum + 1

		var lines []string
		for i, value := range record {
			if i >= len(header) {
				break
			}
			col := header[i]
			rowMetadata[col] = value
			if len(contentSet) > 0 && !contentSet[col] {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", col, value))
		}

		documents = append(documents, ragpipe.Document{
			ID:       fmt.Sprintf("%s_row_%d", l.filePath, rowNum+1),
			Content:  strings.Join(lines, "\n"),
			Metadata: rowMetadata,
		})
	}

	return documents, nil
}
