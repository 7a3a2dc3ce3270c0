package splitter

import (
	"strings"

	"github.com/smallnest/ragpipe"
)

// RecursiveCharacterTextSplitter splits text by trying a priority list
// of separators, descending to the next separator only for units that
// still exceed the chunk size. Adjacent small units are merged back up
// to the size bound, keeping a trailing overlap of whole units.
type RecursiveCharacterTextSplitter struct {
	separators   []string
	chunkSize    int
	chunkOverlap int
	lengthFunc   func(string) int
}

var _ ragpipe.TextSplitter = (*RecursiveCharacterTextSplitter)(nil)

// RecursiveCharacterTextSplitterOption configures the RecursiveCharacterTextSplitter
type RecursiveCharacterTextSplitterOption func(*RecursiveCharacterTextSplitter)

// WithChunkSize sets the chunk size for the splitter
func WithChunkSize(size int) RecursiveCharacterTextSplitterOption {
	return func(s *RecursiveCharacterTextSplitter) {
		s.chunkSize = size
	}
}

// WithChunkOverlap sets the chunk overlap for the splitter
func WithChunkOverlap(overlap int) RecursiveCharacterTextSplitterOption {
	return func(s *RecursiveCharacterTextSplitter) {
		s.chunkOverlap = overlap
	}
}

// WithSeparators sets the custom separators for the splitter
func WithSeparators(separators []string) RecursiveCharacterTextSplitterOption {
	return func(s *RecursiveCharacterTextSplitter) {
		s.separators = separators
	}
}

// WithLengthFunction sets a custom length function
func WithLengthFunction(fn func(string) int) RecursiveCharacterTextSplitterOption {
	return func(s *RecursiveCharacterTextSplitter) {
		s.lengthFunc = fn
	}
}

// NewRecursiveCharacterTextSplitter creates a new RecursiveCharacterTextSplitter.
// Overlap >= chunk size and an empty separator list are configuration errors.
func NewRecursiveCharacterTextSplitter(opts ...RecursiveCharacterTextSplitterOption) (*RecursiveCharacterTextSplitter, error) {
	s := &RecursiveCharacterTextSplitter{
		separators:   []string{"\n\n", "\n", " ", ""},
		chunkSize:    1000,
		chunkOverlap: 200,
		lengthFunc:   func(s string) int { return len(s) },
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := validateChunking(s.chunkSize, s.chunkOverlap); err != nil {
		return nil, err
	}
	if len(s.separators) == 0 {
		return nil, &ragpipe.ConfigError{Field: "separators", Reason: "separator list must not be empty"}
	}

	return s, nil
}

// MustRecursiveCharacterTextSplitter is like NewRecursiveCharacterTextSplitter
// but panics on configuration errors. Intended for static configurations.
func MustRecursiveCharacterTextSplitter(opts ...RecursiveCharacterTextSplitterOption) *RecursiveCharacterTextSplitter {
	s, err := NewRecursiveCharacterTextSplitter(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// SplitText splits text into chunks
func (s *RecursiveCharacterTextSplitter) SplitText(text string) ([]string, error) {
	if s.lengthFunc(text) <= s.chunkSize {
		return []string{text}, nil
	}
	return s.splitRecursive(text, s.separators), nil
}

// SplitDocuments splits documents into chunk documents
func (s *RecursiveCharacterTextSplitter) SplitDocuments(docs []ragpipe.Document) ([]ragpipe.Document, error) {
	chunks := make([]ragpipe.Document, 0, len(docs))

	for _, doc := range docs {
		textChunks, err := s.SplitText(doc.Content)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunkDocuments(doc, textChunks)...)
	}

	return chunks, nil
}

// splitRecursive splits text with the first separator that occurs in
// it, descending to finer separators only for oversized units.
func (s *RecursiveCharacterTextSplitter) splitRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var splits []string
	if separator == "" {
		splits = splitByWindow(text, s.chunkSize, s.chunkOverlap)
	} else {
		splits = strings.Split(text, separator)
	}

	var final []string
	var good []string
	for _, split := range splits {
		if strings.TrimSpace(split) == "" {
			continue
		}
		if s.lengthFunc(split) <= s.chunkSize {
			good = append(good, split)
			continue
		}
		// Flush merged smaller units before descending
		if len(good) > 0 {
			final = append(final, s.mergeSplits(good, separator)...)
			good = nil
		}
		if len(remaining) == 0 {
			final = append(final, split)
		} else {
			final = append(final, s.splitRecursive(split, remaining)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.mergeSplits(good, separator)...)
	}

	return final
}

// mergeSplits joins consecutive units into chunks bounded by the chunk
// size, re-using trailing units up to the overlap budget so content at
// a split point belongs to both neighbors.
func (s *RecursiveCharacterTextSplitter) mergeSplits(splits []string, separator string) []string {
	var merged []string
	var current []string
	total := 0

	sepLen := s.lengthFunc(separator)

	for _, split := range splits {
		splitLen := s.lengthFunc(split)

		if len(current) > 0 && total+splitLen+sepLen > s.chunkSize {
			if chunk := joinSplits(current, separator); chunk != "" {
				merged = append(merged, chunk)
			}
			// Evict from the front until the retained tail fits the
			// overlap budget and leaves room for the new unit.
			for len(current) > 0 && (total > s.chunkOverlap || total+splitLen+sepLen > s.chunkSize) {
				total -= s.lengthFunc(current[0]) + sepLen
				current = current[1:]
			}
			if total < 0 {
				total = 0
			}
		}

		current = append(current, split)
		total += splitLen
		if len(current) > 1 {
			total += sepLen
		}
	}

	if chunk := joinSplits(current, separator); chunk != "" {
		merged = append(merged, chunk)
	}

	return merged
}

// joinSplits rebuilds a chunk from its units verbatim. Edge whitespace
// is kept so that the overlap units carried into the next chunk stay
// byte-identical across both chunks.
func joinSplits(splits []string, separator string) string {
	return strings.Join(splits, separator)
}

// splitByWindow slices text into fixed windows with a fixed stride so
// that consecutive windows share exactly `overlap` bytes.
func splitByWindow(text string, size, overlap int) []string {
	if len(text) <= size {
		return []string{text}
	}

	var windows []string
	step := size - overlap
	for start := 0; start < len(text); start += step {
		end := start + size
		if end >= len(text) {
			windows = append(windows, text[start:])
			break
		}
		windows = append(windows, text[start:end])
	}
	return windows
}
