package splitter

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"

	"github.com/smallnest/ragpipe"
)

// MarkdownHeaderTextSplitter splits markdown at heading boundaries and
// attaches the enclosing header path as metadata on every chunk
// beneath it. Chunk sizes follow document structure, not a byte bound.
type MarkdownHeaderTextSplitter struct {
	maxLevel   int
	joinString string
}

var _ ragpipe.TextSplitter = (*MarkdownHeaderTextSplitter)(nil)

// MarkdownHeaderTextSplitterOption configures the MarkdownHeaderTextSplitter
type MarkdownHeaderTextSplitterOption func(*MarkdownHeaderTextSplitter)

// WithMaxHeaderLevel sets the deepest heading level that starts a new
// chunk; deeper headings stay inside their parent section.
func WithMaxHeaderLevel(level int) MarkdownHeaderTextSplitterOption {
	return func(s *MarkdownHeaderTextSplitter) {
		s.maxLevel = level
	}
}

// WithHeaderPathJoin sets the string joining header titles in the
// header_path metadata value.
func WithHeaderPathJoin(join string) MarkdownHeaderTextSplitterOption {
	return func(s *MarkdownHeaderTextSplitter) {
		s.joinString = join
	}
}

// NewMarkdownHeaderTextSplitter creates a new MarkdownHeaderTextSplitter
func NewMarkdownHeaderTextSplitter(opts ...MarkdownHeaderTextSplitterOption) (*MarkdownHeaderTextSplitter, error) {
	s := &MarkdownHeaderTextSplitter{
		maxLevel:   3,
		joinString: " > ",
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.maxLevel < 1 || s.maxLevel > 6 {
		return nil, &ragpipe.ConfigError{Field: "max_header_level", Reason: fmt.Sprintf("must be 1..6, got %d", s.maxLevel)}
	}

	return s, nil
}

// section is a contiguous run of markdown under one header path.
type section struct {
	headers []string // titles from h1 down to the section's own header
	levels  []int
	content strings.Builder
}

// SplitText splits markdown text into one chunk per section.
func (s *MarkdownHeaderTextSplitter) SplitText(text string) ([]string, error) {
	sections := s.parseSections(text)

	chunks := make([]string, 0, len(sections))
	for _, sec := range sections {
		content := strings.TrimSpace(sec.content.String())
		if content != "" {
			chunks = append(chunks, content)
		}
	}
	if len(chunks) == 0 {
		return []string{strings.TrimSpace(text)}, nil
	}
	return chunks, nil
}

// SplitDocuments splits markdown documents, attaching header metadata
// (h1..h6 plus the joined header_path) to every chunk.
func (s *MarkdownHeaderTextSplitter) SplitDocuments(docs []ragpipe.Document) ([]ragpipe.Document, error) {
	var result []ragpipe.Document

	for _, doc := range docs {
		sections := s.parseSections(doc.Content)

		var textChunks []string
		var headerMeta []map[string]any
		for _, sec := range sections {
			content := strings.TrimSpace(sec.content.String())
			if content == "" {
				continue
			}
			meta := make(map[string]any)
			for i, title := range sec.headers {
				meta[fmt.Sprintf("h%d", sec.levels[i])] = title
			}
			if len(sec.headers) > 0 {
				meta["header_path"] = strings.Join(sec.headers, s.joinString)
			}
			textChunks = append(textChunks, content)
			headerMeta = append(headerMeta, meta)
		}

		chunks := chunkDocuments(doc, textChunks)
		for i := range chunks {
			for k, v := range headerMeta[i] {
				chunks[i].Metadata[k] = v
			}
		}
		result = append(result, chunks...)
	}

	return result, nil
}

// parseSections walks the markdown AST, starting a new section at each
// heading up to maxLevel and keeping a stack of enclosing headers.
func (s *MarkdownHeaderTextSplitter) parseSections(text string) []*section {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(text))

	var sections []*section
	current := &section{}
	var stack []string
	var levels []int

	for _, node := range doc.GetChildren() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Level > s.maxLevel {
			content := nodeText(node)
			if content != "" {
				if current.content.Len() > 0 {
					current.content.WriteString("\n\n")
				}
				current.content.WriteString(content)
			}
			continue
		}

		if current.content.Len() > 0 {
			sections = append(sections, current)
		}

		// Pop headers at or below this level, then push the new one.
		for len(levels) > 0 && levels[len(levels)-1] >= heading.Level {
			stack = stack[:len(stack)-1]
			levels = levels[:len(levels)-1]
		}
		stack = append(stack, nodeText(heading))
		levels = append(levels, heading.Level)

		current = &section{
			headers: append([]string(nil), stack...),
			levels:  append([]int(nil), levels...),
		}
	}

	if current.content.Len() > 0 {
		sections = append(sections, current)
	}

	return sections
}

// nodeText collects the literal text of all leaves under a node.
func nodeText(node ast.Node) string {
	var sb strings.Builder
	ast.WalkFunc(node, func(n ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			return ast.GoToNext
		}
		if leaf := n.AsLeaf(); leaf != nil {
			sb.Write(leaf.Literal)
		}
		return ast.GoToNext
	})
	return strings.TrimSpace(sb.String())
}
