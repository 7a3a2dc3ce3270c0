package llm

import (
	"context"
	"errors"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smallnest/ragpipe"
)

// OpenAIModel implements Model using the OpenAI chat completions API.
type OpenAIModel struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

var _ Model = (*OpenAIModel)(nil)

// OpenAIOption configures the OpenAIModel
type OpenAIOption func(*OpenAIModel)

// WithModel sets the chat model, default gpt-4o-mini
func WithModel(model string) OpenAIOption {
	return func(m *OpenAIModel) {
		m.model = model
	}
}

// WithTemperature sets the sampling temperature
func WithTemperature(temperature float32) OpenAIOption {
	return func(m *OpenAIModel) {
		m.temperature = temperature
	}
}

// WithMaxTokens caps the response length
func WithMaxTokens(maxTokens int) OpenAIOption {
	return func(m *OpenAIModel) {
		m.maxTokens = maxTokens
	}
}

// NewOpenAIModel creates a model using the given API key. An empty key
// falls back to the OPENAI_API_KEY environment variable.
func NewOpenAIModel(apiKey string, opts ...OpenAIOption) (*OpenAIModel, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, &ragpipe.ConfigError{Field: "api_key", Reason: "missing OpenAI API key"}
	}

	m := &OpenAIModel{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4oMini,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// NewOpenAIModelWithConfig creates a model from a full client config,
// for proxies and OpenAI-compatible endpoints.
func NewOpenAIModelWithConfig(config openai.ClientConfig, opts ...OpenAIOption) *OpenAIModel {
	m := &OpenAIModel{
		client: openai.NewClientWithConfig(config),
		model:  openai.GPT4oMini,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Generate returns the model's full response to the prompt
func (m *OpenAIModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", &ragpipe.ProviderError{Provider: "openai", Op: "chat", Err: err}
	}

	if len(resp.Choices) == 0 {
		return "", &ragpipe.ProviderError{Provider: "openai", Op: "chat", Err: errors.New("response has no choices")}
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateStream streams the response, calling fn once per chunk
func (m *OpenAIModel) GenerateStream(ctx context.Context, prompt string, fn func(chunk string) error) error {
	stream, err := m.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return &ragpipe.ProviderError{Provider: "openai", Op: "chat_stream", Err: err}
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &ragpipe.ProviderError{Provider: "openai", Op: "chat_stream", Err: err}
		}

		if len(resp.Choices) == 0 {
			continue
		}
		if chunk := resp.Choices[0].Delta.Content; chunk != "" {
			if err := fn(chunk); err != nil {
				return err
			}
		}
	}
}
