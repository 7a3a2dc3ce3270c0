package splitter

import (
	"strings"

	"github.com/smallnest/ragpipe"
)

// CharacterTextSplitter splits text at a single fixed separator,
// merging units up to the chunk size. Chunks may violate natural
// boundaries when units themselves exceed the size. An empty separator
// falls back to fixed-size character windows with exact overlap.
type CharacterTextSplitter struct {
	separator    string
	chunkSize    int
	chunkOverlap int
	lengthFunc   func(string) int
}

var _ ragpipe.TextSplitter = (*CharacterTextSplitter)(nil)

// CharacterTextSplitterOption configures the CharacterTextSplitter
type CharacterTextSplitterOption func(*CharacterTextSplitter)

// WithCharacterSeparator sets the separator for character splitter
func WithCharacterSeparator(separator string) CharacterTextSplitterOption {
	return func(s *CharacterTextSplitter) {
		s.separator = separator
	}
}

// WithCharacterChunkSize sets the chunk size for character splitter
func WithCharacterChunkSize(size int) CharacterTextSplitterOption {
	return func(s *CharacterTextSplitter) {
		s.chunkSize = size
	}
}

// WithCharacterChunkOverlap sets the chunk overlap for character splitter
func WithCharacterChunkOverlap(overlap int) CharacterTextSplitterOption {
	return func(s *CharacterTextSplitter) {
		s.chunkOverlap = overlap
	}
}

// NewCharacterTextSplitter creates a new CharacterTextSplitter
func NewCharacterTextSplitter(opts ...CharacterTextSplitterOption) (*CharacterTextSplitter, error) {
	s := &CharacterTextSplitter{
		separator:    "\n\n",
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

	return s, nil
}

// SplitText splits text into chunks
func (s *CharacterTextSplitter) SplitText(text string) ([]string, error) {
	if s.lengthFunc(text) <= s.chunkSize {
		return []string{text}, nil
	}

	if s.separator == "" {
		return splitByWindow(text, s.chunkSize, s.chunkOverlap), nil
	}

	splits := strings.Split(text, s.separator)
	var chunks []string
	var current string

	for _, split := range splits {
		if strings.TrimSpace(split) == "" {
			continue
		}

		if current == "" {
			current = split
			continue
		}

		if s.lengthFunc(current)+s.lengthFunc(s.separator)+s.lengthFunc(split) <= s.chunkSize {
			current += s.separator + split
		} else {
			chunks = append(chunks, current)
			current = split
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}

	return chunks, nil
}

// SplitDocuments splits documents into chunk documents
func (s *CharacterTextSplitter) SplitDocuments(docs []ragpipe.Document) ([]ragpipe.Document, error) {
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
