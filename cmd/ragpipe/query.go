package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/smallnest/ragpipe"
	"github.com/smallnest/ragpipe/llm"
	"github.com/smallnest/ragpipe/retriever"
	"github.com/smallnest/ragpipe/store"
)

var (
	queryK         int
	queryMMR       bool
	queryLambda    float64
	queryThreshold float64
	queryStream    bool
	queryModel     string
	queryRerank    bool
)

var (
	answerStyle   = lipgloss.NewStyle().Bold(true)
	sectionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	citationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Answer a question against the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "top-k", "k", 4, "Number of chunks to retrieve")
	queryCmd.Flags().BoolVar(&queryMMR, "mmr", false, "Use maximal marginal relevance instead of plain similarity")
	queryCmd.Flags().Float64Var(&queryLambda, "lambda", 0.5, "MMR relevance/diversity balance, 1 is pure relevance")
	queryCmd.Flags().Float64Var(&queryThreshold, "threshold", 0, "Drop chunks scoring below this (0 keeps all)")
	queryCmd.Flags().BoolVar(&queryStream, "stream", false, "Stream the answer as it is generated")
	queryCmd.Flags().StringVar(&queryModel, "model", "", "OpenAI chat model (default gpt-4o-mini)")
	queryCmd.Flags().BoolVar(&queryRerank, "rerank", false, "Rerank retrieved chunks by query term overlap")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := args[0]

	emb, err := newEmbedder()
	if err != nil {
		return err
	}

	st := store.NewMemoryVectorStore(emb)
	if _, err := os.Stat(indexPath); err != nil {
		return fmt.Errorf("index %s not found, run `ragpipe index` first", indexPath)
	}
	if err := st.Load(indexPath); err != nil {
		return fmt.Errorf("load index %s: %w", indexPath, err)
	}

	config := ragpipe.RetrievalConfig{
		K:              queryK,
		ScoreThreshold: queryThreshold,
	}
	if queryMMR {
		config.SearchType = ragpipe.SearchTypeMMR
		config.LambdaMult = &queryLambda
	}
	var r ragpipe.Retriever = retriever.NewVectorRetriever(st, emb, config)
	if queryRerank {
		r = retriever.NewRerankingRetriever(r, retriever.NewKeywordReranker(queryK))
	}

	var opts []llm.OpenAIOption
	if queryModel != "" {
		opts = append(opts, llm.WithModel(queryModel))
	}
	model, err := llm.NewOpenAIModel("", opts...)
	if err != nil {
		return err
	}

	chain := ragpipe.NewChain(r, model)

	var answer *ragpipe.Answer
	if queryStream {
		answer, err = chain.Stream(cmd.Context(), question, func(chunk string) error {
			cmd.Print(chunk)
			return nil
		})
		cmd.Println()
	} else {
		answer, err = chain.Run(cmd.Context(), question)
	}
	if err != nil {
		if errors.Is(err, ragpipe.ErrEmptyResult) {
			cmd.Println("No relevant documents found.")
			return nil
		}
		return err
	}

	if !queryStream {
		cmd.Println(answerStyle.Render(answer.Text))
	}
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println(sectionStyle.Render("Sources:"))
		for _, c := range answer.Citations {
			cmd.Println(citationStyle.Render("  " + c))
		}
	}
	return nil
}
