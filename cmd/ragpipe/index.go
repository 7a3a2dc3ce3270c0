package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/ragpipe"
	"github.com/smallnest/ragpipe/cache"
	"github.com/smallnest/ragpipe/embedder"
	"github.com/smallnest/ragpipe/loader"
	"github.com/smallnest/ragpipe/splitter"
	"github.com/smallnest/ragpipe/store"
)

var (
	indexChunkSize    int
	indexChunkOverlap int
	indexGlob         string
	indexCachePath    string
)

var indexCmd = &cobra.Command{
	Use:   "index [path|url]",
	Short: "Index a file, directory or web page into the local store",
	Long: `Index loads the given source, splits it into chunks, embeds the
chunks and persists the resulting vectors to the index file. Running
index again with the same index file adds to the existing index.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexChunkSize, "chunk-size", 500, "Maximum chunk size in characters")
	indexCmd.Flags().IntVar(&indexChunkOverlap, "chunk-overlap", 50, "Overlap between adjacent chunks")
	indexCmd.Flags().StringVar(&indexGlob, "glob", "", `Glob pattern for directory sources, e.g. "**/*.md"`)
	indexCmd.Flags().StringVar(&indexCachePath, "cache", "", "SQLite embedding cache path (off when empty)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	src := args[0]

	ld, err := newLoader(src)
	if err != nil {
		return err
	}

	sp, err := splitter.NewRecursiveCharacterTextSplitter(
		splitter.WithChunkSize(indexChunkSize),
		splitter.WithChunkOverlap(indexChunkOverlap),
	)
	if err != nil {
		return err
	}

	emb, err := newEmbedder()
	if err != nil {
		return err
	}
	if indexCachePath != "" {
		c, err := cache.NewSqliteCache(cache.SqliteOptions{Path: indexCachePath})
		if err != nil {
			return fmt.Errorf("open embedding cache: %w", err)
		}
		defer c.Close()
		provider := "openai"
		if useMock {
			provider = "mock"
		}
		emb = embedder.NewCachedEmbedder(emb, c, provider, embeddingModel)
	}

	st := store.NewMemoryVectorStore(emb)
	if _, err := os.Stat(indexPath); err == nil {
		if err := st.Load(indexPath); err != nil {
			return fmt.Errorf("load existing index %s: %w", indexPath, err)
		}
	}

	indexer := ragpipe.NewIndexer(ld, sp, emb, st)
	n, err := indexer.Index(cmd.Context())
	if err != nil {
		return err
	}

	if err := st.Persist(indexPath); err != nil {
		return fmt.Errorf("persist index %s: %w", indexPath, err)
	}

	stats, err := st.GetStats(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Indexed %d chunks from %s (%d total in %s)\n", n, src, stats.TotalDocuments, indexPath)
	return nil
}

// newLoader maps the source argument to a loader: URLs go to the web
// loader, directories walk with an optional glob, and single files
// dispatch on extension.
func newLoader(src string) (ragpipe.DocumentLoader, error) {
	if isURL(src) {
		return loader.NewWebLoader(src), nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}
	if info.IsDir() {
		var opts []loader.DirectoryLoaderOption
		if indexGlob != "" {
			opts = append(opts, loader.WithGlobPattern(indexGlob))
		}
		return loader.NewDirectoryLoader(src, opts...), nil
	}

	switch strings.ToLower(filepath.Ext(src)) {
	case ".pdf":
		return loader.NewPDFLoader(src), nil
	case ".csv":
		return loader.NewCSVLoader(src), nil
	default:
		return loader.NewTextLoader(src), nil
	}
}
