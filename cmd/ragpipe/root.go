package main

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/smallnest/ragpipe"
	"github.com/smallnest/ragpipe/embedder"
	"github.com/smallnest/ragpipe/log"

	openai "github.com/sashabaranov/go-openai"
)

const version = "0.1.0"

var (
	indexPath      string
	useMock        bool
	embeddingModel string
	logLevel       string
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Index documents and answer questions over them",
	Long: `ragpipe builds a local vector index from files, directories or web
pages, then answers questions against it with an LLM.

Set OPENAI_API_KEY in the environment or a .env file, or pass --mock to
run with a deterministic offline embedder.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// .env is optional; real envs usually export directly
		_ = godotenv.Load()
		level := log.ParseLevel(logLevel)
		if verbose {
			level = log.LogLevelDebug
		}
		log.SetDefaultLogger(log.NewDefaultLogger(level))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&indexPath, "index", "ragpipe.json", "Path of the persisted index file")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Use a deterministic offline embedder (no API key needed)")
	rootCmd.PersistentFlags().StringVar(&embeddingModel, "embedding-model", "", "OpenAI embedding model (default text-embedding-3-small)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error, none")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging (same as --log-level debug)")
}

// newEmbedder picks the embedder the persistent flags ask for. The same
// choice must be used for indexing and querying, otherwise the stored
// vectors and the query vector live in different spaces.
func newEmbedder() (ragpipe.Embedder, error) {
	if useMock {
		return embedder.NewMockEmbedder(64), nil
	}
	var opts []embedder.OpenAIEmbedderOption
	if embeddingModel != "" {
		opts = append(opts, embedder.WithEmbeddingModel(openai.EmbeddingModel(embeddingModel)))
	}
	return embedder.NewOpenAIEmbedder("", opts...)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("ragpipe version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
