package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/ragpipe"
)

func TestRecursiveCharacterTextSplitter(t *testing.T) {
	t.Run("Short input returns one identical chunk", func(t *testing.T) {
		s := MustRecursiveCharacterTextSplitter(
			WithChunkSize(100),
			WithChunkOverlap(10),
		)
		text := "a short paragraph"
		chunks, err := s.SplitText(text)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, text, chunks[0])
	})

	t.Run("Basic splitting", func(t *testing.T) {
		s := MustRecursiveCharacterTextSplitter(
			WithChunkSize(10),
			WithChunkOverlap(0),
		)
		chunks, err := s.SplitText("1234567890abcdefghij")
		require.NoError(t, err)
		assert.Len(t, chunks, 2)
		assert.Equal(t, "1234567890", chunks[0])
		assert.Equal(t, "abcdefghij", chunks[1])
	})

	t.Run("Split with separators", func(t *testing.T) {
		s := MustRecursiveCharacterTextSplitter(
			WithChunkSize(10),
			WithChunkOverlap(0),
			WithSeparators([]string{"\n"}),
		)
		chunks, err := s.SplitText("part-one-x\npart-two-y\npart-thr-z")
		require.NoError(t, err)
		assert.Len(t, chunks, 3)
		assert.Equal(t, "part-one-x", chunks[0])
		assert.Equal(t, "part-two-y", chunks[1])
		assert.Equal(t, "part-thr-z", chunks[2])
	})

	t.Run("Overlap units keep edge whitespace byte-identical", func(t *testing.T) {
		s := MustRecursiveCharacterTextSplitter(
			WithChunkSize(12),
			WithChunkOverlap(6),
			WithSeparators([]string{"\n"}),
		)
		chunks, err := s.SplitText(" alpha\n beta\n gam")
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, " alpha\n beta", chunks[0])
		assert.Equal(t, " beta\n gam", chunks[1])
		// The shared unit, leading space included, appears verbatim
		// at the tail of one chunk and the head of the next.
		assert.True(t, strings.HasSuffix(chunks[0], " beta"))
		assert.True(t, strings.HasPrefix(chunks[1], " beta"))
	})

	t.Run("Every chunk respects the size bound", func(t *testing.T) {
		s := MustRecursiveCharacterTextSplitter(
			WithChunkSize(50),
			WithChunkOverlap(10),
		)
		text := strings.Repeat("some words in a sentence. ", 40)
		chunks, err := s.SplitText(text)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, len(chunk), 50)
		}
	})

	t.Run("Split documents carries parent metadata", func(t *testing.T) {
		s := MustRecursiveCharacterTextSplitter(
			WithChunkSize(10),
			WithChunkOverlap(2),
		)
		doc := ragpipe.Document{
			ID:       "doc1",
			Content:  "123456789012345",
			Metadata: map[string]any{"key": "val"},
		}
		chunks, err := s.SplitDocuments([]ragpipe.Document{doc})
		require.NoError(t, err)

		assert.NotEmpty(t, chunks)
		for i, chunk := range chunks {
			assert.Equal(t, "doc1", chunk.Metadata["parent_id"])
			assert.Equal(t, i, chunk.Metadata["chunk_index"])
			assert.Equal(t, len(chunks), chunk.Metadata["chunk_total"])
			assert.Equal(t, "val", chunk.Metadata["key"])
		}
	})

	t.Run("Overlap >= size is rejected", func(t *testing.T) {
		_, err := NewRecursiveCharacterTextSplitter(
			WithChunkSize(10),
			WithChunkOverlap(10),
		)
		require.Error(t, err)
		var cfgErr *ragpipe.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("Empty separator list is rejected", func(t *testing.T) {
		_, err := NewRecursiveCharacterTextSplitter(
			WithSeparators([]string{}),
		)
		require.Error(t, err)
		var cfgErr *ragpipe.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}

func TestCharacterTextSplitter(t *testing.T) {
	t.Run("Split by separator", func(t *testing.T) {
		s, err := NewCharacterTextSplitter(
			WithCharacterSeparator("|"),
			WithCharacterChunkSize(10),
			WithCharacterChunkOverlap(0),
		)
		require.NoError(t, err)

		chunks, err := s.SplitText("aaa|bbb|ccccccccccc|ddd")
		require.NoError(t, err)
		assert.Equal(t, []string{"aaa|bbb", "ccccccccccc", "ddd"}, chunks)
	})

	t.Run("Short input returns one identical chunk", func(t *testing.T) {
		s, err := NewCharacterTextSplitter(
			WithCharacterChunkSize(100),
			WithCharacterChunkOverlap(0),
		)
		require.NoError(t, err)

		chunks, err := s.SplitText("short")
		require.NoError(t, err)
		assert.Equal(t, []string{"short"}, chunks)
	})

	t.Run("Window mode overlap regions are byte-identical", func(t *testing.T) {
		s, err := NewCharacterTextSplitter(
			WithCharacterSeparator(""),
			WithCharacterChunkSize(10),
			WithCharacterChunkOverlap(4),
		)
		require.NoError(t, err)

		text := "abcdefghijklmnopqrstuvwxyz0123456789"
		chunks, err := s.SplitText(text)
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)

		for i := 1; i < len(chunks); i++ {
			prev, cur := chunks[i-1], chunks[i]
			overlap := 4
			if len(cur) < overlap {
				overlap = len(cur)
			}
			assert.Equal(t, prev[len(prev)-overlap:], cur[:overlap],
				"chunks %d and %d must share byte-identical overlap", i-1, i)
		}
	})

	t.Run("Overlap >= size is rejected", func(t *testing.T) {
		_, err := NewCharacterTextSplitter(
			WithCharacterChunkSize(5),
			WithCharacterChunkOverlap(7),
		)
		require.Error(t, err)
	})
}

func TestMarkdownHeaderTextSplitter(t *testing.T) {
	markdown := `# Guide

Intro paragraph.

## Install

Run the installer.

## Usage

Basic usage text.

### Advanced

Advanced usage text.
`

	t.Run("Splits at headers with header path metadata", func(t *testing.T) {
		s, err := NewMarkdownHeaderTextSplitter()
		require.NoError(t, err)

		doc := ragpipe.Document{ID: "md1", Content: markdown, Metadata: map[string]any{"source": "guide.md"}}
		chunks, err := s.SplitDocuments([]ragpipe.Document{doc})
		require.NoError(t, err)
		require.Len(t, chunks, 4)

		assert.Equal(t, "Intro paragraph.", chunks[0].Content)
		assert.Equal(t, "Guide", chunks[0].Metadata["h1"])

		assert.Equal(t, "Run the installer.", chunks[1].Content)
		assert.Equal(t, "Install", chunks[1].Metadata["h2"])
		assert.Equal(t, "Guide > Install", chunks[1].Metadata["header_path"])

		assert.Equal(t, "Advanced usage text.", chunks[3].Content)
		assert.Equal(t, "Guide > Usage > Advanced", chunks[3].Metadata["header_path"])

		// Source metadata is inherited
		for _, chunk := range chunks {
			assert.Equal(t, "guide.md", chunk.Metadata["source"])
			assert.Equal(t, "md1", chunk.Metadata["parent_id"])
		}
	})

	t.Run("Headers below max level stay in their section", func(t *testing.T) {
		s, err := NewMarkdownHeaderTextSplitter(WithMaxHeaderLevel(2))
		require.NoError(t, err)

		chunks, err := s.SplitText(markdown)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		assert.Contains(t, chunks[2], "Advanced usage text.")
	})

	t.Run("Text without headers returns one chunk", func(t *testing.T) {
		s, err := NewMarkdownHeaderTextSplitter()
		require.NoError(t, err)

		chunks, err := s.SplitText("just a paragraph")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
	})

	t.Run("Invalid max level rejected", func(t *testing.T) {
		_, err := NewMarkdownHeaderTextSplitter(WithMaxHeaderLevel(9))
		require.Error(t, err)
	})
}

func TestTokenTextSplitter(t *testing.T) {
	t.Run("Short input returns one identical chunk", func(t *testing.T) {
		s, err := NewTokenTextSplitter(
			WithTokenChunkSize(100),
			WithTokenChunkOverlap(10),
		)
		require.NoError(t, err)

		text := "a few words"
		chunks, err := s.SplitText(text)
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, text, chunks[0])
	})

	t.Run("Chunks respect the token bound", func(t *testing.T) {
		s, err := NewTokenTextSplitter(
			WithTokenChunkSize(16),
			WithTokenChunkOverlap(4),
		)
		require.NoError(t, err)

		text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)
		chunks, err := s.SplitText(text)
		require.NoError(t, err)
		require.Greater(t, len(chunks), 1)
		for _, chunk := range chunks {
			assert.LessOrEqual(t, s.CountTokens(chunk), 16)
		}
	})

	t.Run("Overlap >= size is rejected", func(t *testing.T) {
		_, err := NewTokenTextSplitter(
			WithTokenChunkSize(8),
			WithTokenChunkOverlap(8),
		)
		require.Error(t, err)
	})
}
