package splitter

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/smallnest/ragpipe"
)

// TokenTextSplitter measures chunk size in model tokens rather than
// bytes, using the tiktoken encoding of the target generation model.
type TokenTextSplitter struct {
	chunkSize    int
	chunkOverlap int
	encoding     *tiktoken.Tiktoken
}

var _ ragpipe.TextSplitter = (*TokenTextSplitter)(nil)

// TokenTextSplitterOption configures the TokenTextSplitter
type TokenTextSplitterOption func(*tokenSplitterConfig)

type tokenSplitterConfig struct {
	chunkSize    int
	chunkOverlap int
	model        string
	encodingName string
}

// WithTokenChunkSize sets the chunk size in tokens
func WithTokenChunkSize(size int) TokenTextSplitterOption {
	return func(c *tokenSplitterConfig) {
		c.chunkSize = size
	}
}

// WithTokenChunkOverlap sets the chunk overlap in tokens
func WithTokenChunkOverlap(overlap int) TokenTextSplitterOption {
	return func(c *tokenSplitterConfig) {
		c.chunkOverlap = overlap
	}
}

// WithModel selects the tiktoken encoding by model name, e.g. "gpt-4o"
func WithModel(model string) TokenTextSplitterOption {
	return func(c *tokenSplitterConfig) {
		c.model = model
	}
}

// WithEncoding selects the tiktoken encoding directly, e.g. "cl100k_base"
func WithEncoding(name string) TokenTextSplitterOption {
	return func(c *tokenSplitterConfig) {
		c.encodingName = name
	}
}

// NewTokenTextSplitter creates a new TokenTextSplitter
func NewTokenTextSplitter(opts ...TokenTextSplitterOption) (*TokenTextSplitter, error) {
	cfg := &tokenSplitterConfig{
		chunkSize:    512,
		chunkOverlap: 64,
		encodingName: "cl100k_base",
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := validateChunking(cfg.chunkSize, cfg.chunkOverlap); err != nil {
		return nil, err
	}

	var enc *tiktoken.Tiktoken
	var err error
	if cfg.model != "" {
		enc, err = tiktoken.EncodingForModel(cfg.model)
	} else {
		enc, err = tiktoken.GetEncoding(cfg.encodingName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}

	return &TokenTextSplitter{
		chunkSize:    cfg.chunkSize,
		chunkOverlap: cfg.chunkOverlap,
		encoding:     enc,
	}, nil
}

// SplitText splits text into chunks of at most chunkSize tokens with
// chunkOverlap shared tokens between consecutive chunks.
func (s *TokenTextSplitter) SplitText(text string) ([]string, error) {
	tokens := s.encoding.Encode(text, nil, nil)

	if len(tokens) <= s.chunkSize {
		return []string{text}, nil
	}

	var chunks []string
	step := s.chunkSize - s.chunkOverlap
	for start := 0; start < len(tokens); start += step {
		end := start + s.chunkSize
		if end >= len(tokens) {
			chunks = append(chunks, s.encoding.Decode(tokens[start:]))
			break
		}
		chunks = append(chunks, s.encoding.Decode(tokens[start:end]))
	}

	return chunks, nil
}

// SplitDocuments splits documents into chunk documents
func (s *TokenTextSplitter) SplitDocuments(docs []ragpipe.Document) ([]ragpipe.Document, error) {
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

// CountTokens returns the token count of text under this splitter's encoding.
func (s *TokenTextSplitter) CountTokens(text string) int {
	return len(s.encoding.Encode(text, nil, nil))
}
