package ragpipe

import (
	"context"
	"fmt"
	"strings"
)

const defaultSystemPrompt = "You are a helpful assistant. Answer the question based on the provided context. If you cannot answer based on the context, say so."

// DefaultFallbackAnswer is what a chain answers when retrieval finds
// nothing and no custom fallback is configured.
const DefaultFallbackAnswer = "I don't have enough context to answer this question."

// Chain wires a retriever and a language model into the online answer
// path: retrieve, optionally rerank, build a cited context block,
// generate.
type Chain struct {
	retriever      Retriever
	model          Model
	reranker       Reranker
	systemPrompt   string
	includeScores  bool
	fallbackAnswer string
}

// ChainOption configures a Chain
type ChainOption func(*Chain)

// WithSystemPrompt overrides the default system prompt
func WithSystemPrompt(prompt string) ChainOption {
	return func(c *Chain) {
		c.systemPrompt = prompt
	}
}

// WithReranker adds a reranking stage between retrieval and generation
func WithReranker(reranker Reranker) ChainOption {
	return func(c *Chain) {
		c.reranker = reranker
	}
}

// WithScoresInContext annotates each context entry with its retrieval score
func WithScoresInContext() ChainOption {
	return func(c *Chain) {
		c.includeScores = true
	}
}

// WithFallbackAnswer overrides the insufficient-context answer returned
// when retrieval finds nothing. An empty string opts out of the
// fallback: the chain then returns ErrEmptyResult. The model is never
// called on empty retrieval either way.
func WithFallbackAnswer(answer string) ChainOption {
	return func(c *Chain) {
		c.fallbackAnswer = answer
	}
}

// NewChain creates a chain over the retriever and model
func NewChain(retriever Retriever, model Model, opts ...ChainOption) *Chain {
	c := &Chain{
		retriever:      retriever,
		model:          model,
		systemPrompt:   defaultSystemPrompt,
		fallbackAnswer: DefaultFallbackAnswer,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run answers the query from retrieved context. When retrieval returns
// nothing the fallback answer is returned without calling the model;
// chains with the fallback disabled return ErrEmptyResult instead.
func (c *Chain) Run(ctx context.Context, query string) (*Answer, error) {
	results, answer, err := c.prepare(ctx, query)
	if err != nil || answer != nil {
		return answer, err
	}

	prompt := c.buildPrompt(query, results)
	text, err := c.model.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return c.assemble(query, text, results), nil
}

// Stream answers the query, delivering the generated text through fn
// chunk by chunk. The returned Answer carries the accumulated text.
func (c *Chain) Stream(ctx context.Context, query string, fn func(chunk string) error) (*Answer, error) {
	results, answer, err := c.prepare(ctx, query)
	if err != nil || answer != nil {
		return answer, err
	}

	prompt := c.buildPrompt(query, results)

	var text strings.Builder
	err = c.model.GenerateStream(ctx, prompt, func(chunk string) error {
		text.WriteString(chunk)
		return fn(chunk)
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return c.assemble(query, text.String(), results), nil
}

const condensePrompt = `Given the conversation below and a follow-up question, rewrite the follow-up into a standalone question that can be understood without the conversation. Return only the question.

Conversation:
%s
Follow-up question: %s

Standalone question:`

// RunWithHistory folds prior conversation turns into a standalone
// query via the model, then answers that query. The returned Answer
// keeps the caller's original query.
func (c *Chain) RunWithHistory(ctx context.Context, query string, history []Message) (*Answer, error) {
	standalone := query
	if len(history) > 0 {
		var b strings.Builder
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}

		rewritten, err := c.model.Generate(ctx, fmt.Sprintf(condensePrompt, b.String(), query))
		if err != nil {
			return nil, fmt.Errorf("query rewrite failed: %w", err)
		}
		if s := strings.TrimSpace(rewritten); s != "" {
			standalone = s
		}
	}

	answer, err := c.Run(ctx, standalone)
	if err != nil {
		return nil, err
	}
	answer.Query = query
	return answer, nil
}

// prepare retrieves context for the query. A non-nil Answer short
// circuits the caller: it is the fallback for empty retrieval.
func (c *Chain) prepare(ctx context.Context, query string) ([]SearchResult, *Answer, error) {
	results, err := c.retriever.RetrieveWithConfig(ctx, query, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval failed: %w", err)
	}

	if c.reranker != nil && len(results) > 0 {
		results, err = c.reranker.Rerank(ctx, query, results)
		if err != nil {
			return nil, nil, fmt.Errorf("reranking failed: %w", err)
		}
	}

	if len(results) == 0 {
		if c.fallbackAnswer != "" {
			return nil, &Answer{Query: query, Text: c.fallbackAnswer}, nil
		}
		return nil, nil, ErrEmptyResult
	}

	return results, nil, nil
}

func (c *Chain) buildPrompt(query string, results []SearchResult) string {
	return fmt.Sprintf("%s\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		c.systemPrompt, c.buildContext(results), query)
}

// buildContext renders the retrieved documents as numbered entries with
// their sources, matching the citation numbering in the Answer.
func (c *Chain) buildContext(results []SearchResult) string {
	parts := make([]string, len(results))
	for i, result := range results {
		entry := fmt.Sprintf("[%d] Source: %s", i+1, sourceOf(result.Document))
		if c.includeScores {
			entry += fmt.Sprintf(" (score: %.3f)", result.Score)
		}
		parts[i] = entry + "\nContent: " + result.Document.Content
	}
	return strings.Join(parts, "\n\n")
}

func (c *Chain) assemble(query, text string, results []SearchResult) *Answer {
	answer := &Answer{
		Query: query,
		Text:  strings.TrimSpace(text),
	}

	for i, result := range results {
		answer.Sources = append(answer.Sources, result.Document)
		answer.Citations = append(answer.Citations, fmt.Sprintf("[%d] %s", i+1, sourceOf(result.Document)))
	}

	return answer
}

func sourceOf(doc Document) string {
	if doc.Metadata != nil {
		if source, ok := doc.Metadata["source"]; ok {
			return fmt.Sprintf("%v", source)
		}
	}
	if doc.ID != "" {
		return doc.ID
	}
	return "unknown"
}
